package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		prev, had := os.LookupEnv(k)
		require.NoError(t, os.Setenv(k, v))
		t.Cleanup(func() {
			if had {
				os.Setenv(k, prev)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestLoadCaptureConfigDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"KAIVM_DECODER_COMMAND": "ffmpeg -f v4l2 -i /dev/video0 -f mjpeg -",
	})

	cfg, err := LoadCaptureConfig()
	require.NoError(t, err)

	assert.Equal(t, "/run/kaivm/latest.jpg", cfg.SnapshotPath)
	assert.Equal(t, "/run/kaivm/live.mjpeg", cfg.LivePath)
	assert.Equal(t, 2, cfg.LiveDepth)
	assert.Equal(t, 1.5, cfg.OutFPS)
	assert.Equal(t, 2*time.Second, cfg.Warmup())
	assert.Equal(t, 1*time.Second, cfg.MinBackoff())
	assert.Equal(t, 5*time.Second, cfg.MaxBackoff())
	assert.Equal(t, 5*time.Second, cfg.RecentWindow())
}

func TestLoadCaptureConfigCommandSplitting(t *testing.T) {
	setEnv(t, map[string]string{
		"KAIVM_DECODER_COMMAND": "ffmpeg -f v4l2 -i /dev/video0 -f mjpeg -",
	})

	cfg, err := LoadCaptureConfig()
	require.NoError(t, err)

	program, args, err := cfg.Command()
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg", program)
	assert.Equal(t, []string{"-f", "v4l2", "-i", "/dev/video0", "-f", "mjpeg", "-"}, args)
}

func TestLoadCaptureConfigRequiresDecoderCommand(t *testing.T) {
	os.Unsetenv("KAIVM_DECODER_COMMAND")
	_, err := LoadCaptureConfig()
	assert.Error(t, err)
}

func TestLoadCaptureConfigRejectsBadLiveDepth(t *testing.T) {
	setEnv(t, map[string]string{
		"KAIVM_DECODER_COMMAND":    "ffmpeg -i /dev/video0 -f mjpeg -",
		"KAIVM_LIVE_QUEUE_DEPTH": "0",
	})
	_, err := LoadCaptureConfig()
	assert.Error(t, err)
}
