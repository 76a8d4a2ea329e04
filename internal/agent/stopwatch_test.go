package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopWatcherLatchesOnCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stop")

	sw, err := NewStopWatcher(path, zerolog.Nop())
	require.NoError(t, err)
	defer sw.Close()

	assert.False(t, sw.Triggered())

	require.NoError(t, os.WriteFile(path, []byte{}, 0o644))

	assert.Eventually(t, func() bool {
		return sw.Triggered()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStopWatcherStartsLatchedIfFileAlreadyExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stop")
	require.NoError(t, os.WriteFile(path, []byte{}, 0o644))

	sw, err := NewStopWatcher(path, zerolog.Nop())
	require.NoError(t, err)
	defer sw.Close()

	assert.True(t, sw.Triggered())
}
