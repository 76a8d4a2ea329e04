// Command kaivm-captured runs the MJPEG capture pipeline (spec.md §4):
// it supervises a decoder subprocess, publishes snapshots for the agent
// loop, and optionally feeds a live MJPEG FIFO for a viewer.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hardrave/KaiVM/internal/capture"
	"github.com/hardrave/KaiVM/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kaivm-captured",
		Short:   "Run the kaiVM MJPEG capture loop in the foreground.",
		Example: "kaivm-captured",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd.Context())
			if err != nil && errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	return cmd
}

func run(parentCtx context.Context) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.LoadCaptureConfig()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load capture config")
		return err
	}

	program, args, err := cfg.Command()
	if err != nil {
		logger.Error().Err(err).Msg("invalid decoder command")
		return err
	}

	logger.Info().
		Str("decoder_command", cfg.DecoderCommand).
		Str("snapshot_path", cfg.SnapshotPath).
		Str("live_path", cfg.LivePath).
		Float64("out_fps", cfg.OutFPS).
		Msg("starting capture loop")

	snapshot := capture.NewLatestSnapshot(cfg.SnapshotPath)

	live, err := capture.NewLiveStreamer(cfg.LivePath, cfg.LiveDepth, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start live streamer")
		return err
	}

	loopCfg := capture.DefaultLoopConfig()
	loopCfg.Source = capture.SourceConfig{Command: program, Args: args}
	loopCfg.OutFPS = cfg.OutFPS
	loopCfg.LiveFPS = cfg.LiveFPS
	loopCfg.Warmup = cfg.Warmup()
	loopCfg.MinBackoff = cfg.MinBackoff()
	loopCfg.MaxBackoff = cfg.MaxBackoff()
	loopCfg.RecentWindow = cfg.RecentWindow()

	loop := capture.NewCaptureLoop(loopCfg, snapshot, live, logger)

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal, stopping capture loop")
		cancel()
		<-loopDone
		return nil
	case err := <-loopDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("capture loop exited with error")
			return err
		}
		return nil
	}
}
