package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validJPEG(payload byte) Frame {
	return Frame{0xFF, 0xD8, payload, payload, 0xFF, 0xD9}
}

func TestLatestSnapshotPublishAndRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest.jpg")

	snap := NewLatestSnapshot(path)
	assert.Equal(t, path, snap.Path())

	frame := validJPEG(0xAB)
	require.NoError(t, snap.Publish(frame))

	got, err := snap.Read()
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	// The temp file must not linger after a successful publish.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLatestSnapshotRejectsMalformedFrame(t *testing.T) {
	dir := t.TempDir()
	snap := NewLatestSnapshot(filepath.Join(dir, "latest.jpg"))

	err := snap.Publish(Frame{0x00, 0x01})
	assert.ErrorIs(t, err, ErrNotAFrame)
}

func TestLatestSnapshotOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest.jpg")
	snap := NewLatestSnapshot(path)

	require.NoError(t, snap.Publish(validJPEG(0x01)))
	first, err := snap.ModTime()
	require.NoError(t, err)

	require.NoError(t, snap.Publish(validJPEG(0x02)))
	got, err := snap.Read()
	require.NoError(t, err)
	assert.Equal(t, validJPEG(0x02), got)

	second, err := snap.ModTime()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second, first)
}

func TestLatestSnapshotCreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "run", "latest.jpg")
	snap := NewLatestSnapshot(path)

	require.NoError(t, snap.Publish(validJPEG(0x03)))

	got, err := snap.Read()
	require.NoError(t, err)
	assert.Equal(t, validJPEG(0x03), got)
}
