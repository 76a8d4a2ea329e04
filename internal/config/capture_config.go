package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// CaptureConfig configures kaivm-captured: the decoder subprocess
// command, the publish paths, and the dual-rate scheduler, following
// LoadExternalAgentRunnerConfig's envconfig-struct-plus-validation
// shape (helixml-helix/api/pkg/config/external_agent_runner_config.go).
type CaptureConfig struct {
	// DecoderCommand is a shell-tokenized command (split on whitespace)
	// that writes an MJPEG byte stream to stdout, e.g. an ffmpeg
	// invocation reading a V4L2 device.
	DecoderCommand string `envconfig:"DECODER_COMMAND" required:"true"`

	SnapshotPath string `envconfig:"SNAPSHOT_PATH" default:"/run/kaivm/latest.jpg"`
	LivePath     string `envconfig:"LIVE_PATH" default:"/run/kaivm/live.mjpeg"`
	LiveDepth    int    `envconfig:"LIVE_QUEUE_DEPTH" default:"2"`

	OutFPS  float64 `envconfig:"OUT_FPS" default:"1.5"`
	LiveFPS float64 `envconfig:"LIVE_FPS" default:"0"`

	WarmupSeconds       float64 `envconfig:"WARMUP_SECONDS" default:"2"`
	MinBackoffSeconds   float64 `envconfig:"MIN_BACKOFF_SECONDS" default:"1"`
	MaxBackoffSeconds   float64 `envconfig:"MAX_BACKOFF_SECONDS" default:"5"`
	RecentWindowSeconds float64 `envconfig:"RECENT_WINDOW_SECONDS" default:"5"`
}

// Command splits DecoderCommand into a program and its arguments.
func (c CaptureConfig) Command() (string, []string, error) {
	fields := strings.Fields(c.DecoderCommand)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("config: DECODER_COMMAND must not be empty")
	}
	return fields[0], fields[1:], nil
}

// Warmup, MinBackoff, MaxBackoff, RecentWindow convert the config's
// float-seconds fields into time.Duration for capture.LoopConfig.
func (c CaptureConfig) Warmup() time.Duration      { return secondsToDuration(c.WarmupSeconds) }
func (c CaptureConfig) MinBackoff() time.Duration  { return secondsToDuration(c.MinBackoffSeconds) }
func (c CaptureConfig) MaxBackoff() time.Duration  { return secondsToDuration(c.MaxBackoffSeconds) }
func (c CaptureConfig) RecentWindow() time.Duration { return secondsToDuration(c.RecentWindowSeconds) }

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// LoadCaptureConfig loads and validates CaptureConfig from the
// environment.
func LoadCaptureConfig() (CaptureConfig, error) {
	var cfg CaptureConfig
	if err := envconfig.Process("KAIVM", &cfg); err != nil {
		return CaptureConfig{}, err
	}
	if _, _, err := cfg.Command(); err != nil {
		return CaptureConfig{}, err
	}
	if cfg.LiveDepth < 1 {
		return CaptureConfig{}, fmt.Errorf("config: KAIVM_LIVE_QUEUE_DEPTH must be >= 1")
	}
	return cfg, nil
}
