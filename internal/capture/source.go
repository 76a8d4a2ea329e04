package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// maxUnsyncedBuffer bounds how much data the reader will hold while
// searching for a SOI marker before it gives up and resynchronizes by
// keeping only the tail (spec.md §4.1).
const maxUnsyncedBuffer = 3 << 20 // 3 MB

// resyncTail is how much trailing data survives a resync when no SOI has
// been found in maxUnsyncedBuffer bytes.
const resyncTail = 2 << 10 // 2 KB

// readChunkSize is the read() size used to pull bytes off the decoder's
// stdout pipe.
const readChunkSize = 32 * 1024

// SourceConfig configures the external MJPEG decoder subprocess.
type SourceConfig struct {
	// Command and Args launch a process that writes an MJPEG byte stream
	// to its stdout (e.g. ffmpeg reading a V4L2 device). The process is
	// supervised and restarted by CaptureLoop, not by FrameSource itself.
	Command string
	Args    []string
}

// FrameSource (C1) supervises one run of the decoder subprocess and yields
// whole JPEG frames scanned out of its stdout. A FrameSource instance is
// single-use: call Start, drain Frames, then Stop. CaptureLoop constructs
// a fresh FrameSource for every restart.
type FrameSource struct {
	cfg    SourceConfig
	logger zerolog.Logger

	cmd    *exec.Cmd
	stdout io.ReadCloser
}

// NewFrameSource constructs a FrameSource for one subprocess lifetime.
func NewFrameSource(cfg SourceConfig, logger zerolog.Logger) *FrameSource {
	return &FrameSource{cfg: cfg, logger: logger.With().Str("component", "frame_source").Logger()}
}

// Start launches the decoder subprocess. The process is placed in its own
// process group so that Stop can reliably kill any children it spawns.
func (s *FrameSource) Start(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.cfg.Command, s.cfg.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("capture: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("capture: start %s: %w", s.cfg.Command, err)
	}

	s.cmd = cmd
	s.stdout = stdout
	s.logger.Info().Str("command", s.cfg.Command).Strs("args", s.cfg.Args).Msg("decoder subprocess started")
	return nil
}

// Stop terminates the decoder subprocess and its process group, waiting
// briefly for a clean exit before escalating to SIGKILL.
func (s *FrameSource) Stop() {
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}
	pgid := s.cmd.Process.Pid

	done := make(chan struct{})
	go func() {
		_ = s.cmd.Wait()
		close(done)
	}()

	_ = syscall.Kill(-pgid, syscall.SIGTERM)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		<-done
	}
	s.cmd = nil
	s.stdout = nil
}

// Frames scans the subprocess stdout for SOI/EOI-framed JPEG images and
// invokes yield for each one, in order. It returns when the subprocess's
// stdout is closed or a read error occurs; the returned error is always
// non-nil in that case so the caller (CaptureLoop) knows to restart.
func (s *FrameSource) Frames(yield func(Frame) error) error {
	if s.stdout == nil {
		return fmt.Errorf("capture: frame source not started")
	}
	r := bufio.NewReaderSize(s.stdout, readChunkSize)
	buf := make([]byte, 0, maxUnsyncedBuffer)
	chunk := make([]byte, readChunkSize)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)

			for {
				start := bytes.Index(buf, soi)
				if start < 0 {
					if len(buf) > maxUnsyncedBuffer {
						s.logger.Warn().Int("buffered", len(buf)).Msg("no SOI found, resynchronizing")
						tail := buf[len(buf)-resyncTail:]
						buf = append(buf[:0], tail...)
					}
					break
				}
				if start > 0 {
					buf = append(buf[:0], buf[start:]...)
				}

				end := bytes.Index(buf, eoi)
				if end < 0 {
					// Incomplete frame; wait for more data, keep from SOI onward.
					break
				}

				frame := make(Frame, end+len(eoi))
				copy(frame, buf[:end+len(eoi)])
				buf = append(buf[:0], buf[end+len(eoi):]...)

				if yerr := yield(frame); yerr != nil {
					return yerr
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				rc, _ := processExitCode(s.cmd)
				return fmt.Errorf("capture: decoder stdout closed (exit=%d)", rc)
			}
			return fmt.Errorf("capture: read stdout: %w", err)
		}
	}
}

func processExitCode(cmd *exec.Cmd) (int, error) {
	if cmd == nil || cmd.ProcessState == nil {
		return -1, nil
	}
	return cmd.ProcessState.ExitCode(), nil
}
