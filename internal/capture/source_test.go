package capture

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameSourceYieldsFramesInOrder(t *testing.T) {
	cmdName, args := fakeDecoderScript(t)
	src := NewFrameSource(SourceConfig{Command: cmdName, Args: args}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, src.Start(ctx))
	defer src.Stop()

	var got []Frame
	err := src.Frames(func(f Frame) error {
		got = append(got, f)
		return nil
	})
	require.Error(t, err) // stdout closes when the fake decoder exits

	require.Len(t, got, 2)
	assert.Equal(t, Frame{0xFF, 0xD8, 0x01, 0xFF, 0xD9}, got[0])
	assert.Equal(t, Frame{0xFF, 0xD8, 0x02, 0xFF, 0xD9}, got[1])
}

func TestFrameSourceSkipsGarbageBeforeSOI(t *testing.T) {
	script := `printf 'garbage-before-soi\377\330\001\377\331'`
	src := NewFrameSource(SourceConfig{Command: "sh", Args: []string{"-c", script}}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, src.Start(ctx))
	defer src.Stop()

	var got []Frame
	_ = src.Frames(func(f Frame) error {
		got = append(got, f)
		return nil
	})

	require.Len(t, got, 1)
	assert.Equal(t, Frame{0xFF, 0xD8, 0x01, 0xFF, 0xD9}, got[0])
}

func TestFrameSourceYieldErrorStopsEarly(t *testing.T) {
	cmdName, args := fakeDecoderScript(t)
	src := NewFrameSource(SourceConfig{Command: cmdName, Args: args}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, src.Start(ctx))
	defer src.Stop()

	var calls int
	stopErr := assert.AnError
	err := src.Frames(func(f Frame) error {
		calls++
		return stopErr
	})

	assert.Equal(t, stopErr, err)
	assert.Equal(t, 1, calls)
}

func TestFrameSourceStopIsIdempotentBeforeStart(t *testing.T) {
	src := NewFrameSource(SourceConfig{Command: "sh"}, zerolog.Nop())
	src.Stop() // must not panic when never started
}

func TestFrameSourceFramesRequiresStart(t *testing.T) {
	src := NewFrameSource(SourceConfig{Command: "sh"}, zerolog.Nop())
	err := src.Frames(func(Frame) error { return nil })
	assert.Error(t, err)
}
