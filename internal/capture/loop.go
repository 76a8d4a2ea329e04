package capture

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LoopConfig configures CaptureLoop's dual-rate scheduling (spec.md §4.4).
type LoopConfig struct {
	Source SourceConfig

	// OutFPS is the publish rate to LatestSnapshot. 0 means unlimited
	// (publish every frame).
	OutFPS float64
	// LiveFPS is the push rate to LiveStreamer. 0 means unlimited.
	LiveFPS float64

	// Warmup is a wall-clock window after each (re)start during which
	// frames are discarded (camera auto-exposure/focus settle).
	Warmup time.Duration

	// MinBackoff/MaxBackoff bound the restart delay after a FrameSource
	// failure: MinBackoff if the last successful frame was recent,
	// MaxBackoff otherwise.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// RecentWindow is how long ago "recently successful" means.
	RecentWindow time.Duration
}

// DefaultLoopConfig fills in the defaults named in spec.md §4.1/§4.4.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		OutFPS:       1.5,
		LiveFPS:      0,
		Warmup:       2 * time.Second,
		MinBackoff:   1 * time.Second,
		MaxBackoff:   5 * time.Second,
		RecentWindow: 5 * time.Second,
	}
}

// CaptureLoop (C4) owns a FrameSource across restarts and rate-limits the
// frames it produces into LatestSnapshot (C2) and LiveStreamer (C3).
type CaptureLoop struct {
	cfg      LoopConfig
	snapshot *LatestSnapshot
	live     *LiveStreamer
	logger   zerolog.Logger
}

// NewCaptureLoop constructs a CaptureLoop publishing to snapshot and live.
func NewCaptureLoop(cfg LoopConfig, snapshot *LatestSnapshot, live *LiveStreamer, logger zerolog.Logger) *CaptureLoop {
	return &CaptureLoop{
		cfg:      cfg,
		snapshot: snapshot,
		live:     live,
		logger:   logger.With().Str("component", "capture_loop").Logger(),
	}
}

func period(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

// Run drives FrameSource restarts and rate-limited publication until ctx
// is cancelled.
func (c *CaptureLoop) Run(ctx context.Context) error {
	if c.live != nil {
		go c.live.Run(ctx)
	}

	lastOK := time.Time{}
	backoff := c.cfg.MinBackoff

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		src := NewFrameSource(c.cfg.Source, c.logger)
		if err := src.Start(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("failed to start decoder subprocess")
			if !sleepCtx(ctx, c.nextBackoff(lastOK)) {
				return ctx.Err()
			}
			continue
		}

		startedAt := time.Now()
		latestPeriod := period(c.cfg.OutFPS)
		livePeriod := period(c.cfg.LiveFPS)
		nextLatest := time.Time{}
		nextLive := time.Time{}

		err := src.Frames(func(f Frame) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			now := time.Now()
			if now.Sub(startedAt) < c.cfg.Warmup {
				return nil
			}

			if livePeriod == 0 || !now.Before(nextLive) {
				if c.live != nil {
					c.live.Push(f)
				}
				nextLive = advanceSchedule(nextLive, livePeriod, now)
			}

			if latestPeriod == 0 || !now.Before(nextLatest) {
				if perr := c.snapshot.Publish(f); perr != nil {
					c.logger.Error().Err(perr).Msg("failed to publish snapshot")
				} else {
					lastOK = now
				}
				nextLatest = advanceSchedule(nextLatest, latestPeriod, now)
			}
			return nil
		})

		src.Stop()

		if err != nil && ctx.Err() == nil {
			c.logger.Warn().Err(err).Msg("capture error, restarting after backoff")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		backoff = c.nextBackoff(lastOK)
		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
	}
}

// advanceSchedule returns the next fire time strictly after now, so a
// slow source never causes the schedule to build a backlog.
func advanceSchedule(next time.Time, p time.Duration, now time.Time) time.Time {
	if p == 0 {
		return next
	}
	if next.IsZero() {
		next = now
	}
	for !next.After(now) {
		next = next.Add(p)
	}
	return next
}

func (c *CaptureLoop) nextBackoff(lastOK time.Time) time.Duration {
	if !lastOK.IsZero() && time.Since(lastOK) < c.cfg.RecentWindow {
		return c.cfg.MinBackoff
	}
	return c.cfg.MaxBackoff
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
