package capture

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveStreamerQueueDropsOldest(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLiveStreamer(filepath.Join(dir, "live.jpg"), 2, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, ls.Disabled())

	ls.Push(validJPEG(1))
	ls.Push(validJPEG(2))
	ls.Push(validJPEG(3)) // depth is 2, so frame 1 should be dropped

	f, ok := ls.pop()
	require.True(t, ok)
	assert.Equal(t, validJPEG(2), f)

	f, ok = ls.pop()
	require.True(t, ok)
	assert.Equal(t, validJPEG(3), f)

	_, ok = ls.pop()
	assert.False(t, ok)
}

func TestLiveStreamerDisabledWhenRegularFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not a fifo"), 0o644))

	ls, err := NewLiveStreamer(path, 2, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, ls.Disabled())
}

func TestLiveStreamerDeliversFramesToReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.jpg")
	ls, err := NewLiveStreamer(path, 4, zerolog.Nop())
	require.NoError(t, err)
	require.False(t, ls.Disabled())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ls.Run(ctx)

	frame := validJPEG(0x42)
	ls.Push(frame)

	readDone := make(chan []byte, 1)
	go func() {
		f, err := os.Open(path)
		if err != nil {
			readDone <- nil
			return
		}
		defer f.Close()
		buf := make([]byte, len(frame))
		_, _ = io.ReadFull(f, buf)
		readDone <- buf
	}()

	select {
	case got := <-readDone:
		assert.Equal(t, []byte(frame), got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for frame on live FIFO")
	}
}
