package capture

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// DefaultLiveQueueDepth is Q from spec.md §3 (LiveChannel): the number of
// whole frames the bounded drop-oldest queue retains.
const DefaultLiveQueueDepth = 2

// LiveStreamer (C3) fans frames out to a viewer-owned FIFO without ever
// blocking its producer (CaptureLoop). A dedicated writer goroutine owns
// the FIFO file descriptor and absorbs the viewer's backpressure; the
// producer only ever touches a bounded, drop-oldest in-memory queue.
type LiveStreamer struct {
	path     string
	depth    int
	logger   zerolog.Logger
	disabled bool

	mu     sync.Mutex
	queue  []Frame
	notify chan struct{}

	fd int // -1 when the FIFO is not currently open for writing
}

// NewLiveStreamer prepares the FIFO at path (creating it with mode 0666
// if absent) and returns a streamer with a bounded queue of depth frames.
// If a non-FIFO file already exists at path, live streaming is disabled
// for this run: Push becomes a silent no-op, matching spec.md §4.3.
func NewLiveStreamer(path string, depth int, logger zerolog.Logger) (*LiveStreamer, error) {
	if depth <= 0 {
		depth = DefaultLiveQueueDepth
	}
	logger = logger.With().Str("component", "live_streamer").Logger()

	ls := &LiveStreamer{
		path:   path,
		depth:  depth,
		logger: logger,
		notify: make(chan struct{}, 1),
		fd:     -1,
	}

	st, err := os.Lstat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if merr := syscall.Mkfifo(path, 0o666); merr != nil {
			return nil, merr
		}
	case err != nil:
		return nil, err
	case st.Mode()&os.ModeNamedPipe == 0:
		logger.Warn().Str("path", path).Msg("non-FIFO file at live stream path, disabling live streaming for this run")
		ls.disabled = true
	}

	return ls, nil
}

// Disabled reports whether live streaming was disabled at construction
// because a non-FIFO file occupied the stream path.
func (ls *LiveStreamer) Disabled() bool { return ls.disabled }

// Run owns the FIFO writer goroutine until ctx is cancelled. It is meant
// to be run in its own goroutine by the caller (CaptureLoop).
func (ls *LiveStreamer) Run(ctx context.Context) {
	defer ls.closeFD()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ls.notify:
		}
		for {
			frame, ok := ls.pop()
			if !ok {
				break
			}
			ls.writeFrame(frame)
		}
	}
}

// Push enqueues frame, dropping the oldest queued frame if the queue is
// already at capacity (P3: drop-oldest policy).
func (ls *LiveStreamer) Push(frame Frame) {
	if ls.disabled {
		return
	}
	ls.mu.Lock()
	if len(ls.queue) >= ls.depth {
		ls.queue = ls.queue[1:]
	}
	ls.queue = append(ls.queue, frame)
	ls.mu.Unlock()

	select {
	case ls.notify <- struct{}{}:
	default:
	}
}

func (ls *LiveStreamer) pop() (Frame, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if len(ls.queue) == 0 {
		return nil, false
	}
	frame := ls.queue[0]
	ls.queue = ls.queue[1:]
	return frame, true
}

// writeFrame opens the FIFO if needed and writes frame in full. On
// ENXIO (no reader attached) the frame is dropped silently. On EPIPE the
// descriptor is closed so the next frame re-attempts the open.
func (ls *LiveStreamer) writeFrame(frame Frame) {
	if ls.fd < 0 {
		fd, err := unix.Open(ls.path, unix.O_WRONLY|unix.O_NONBLOCK, 0)
		if err != nil {
			if errors.Is(err, unix.ENXIO) {
				ls.logger.Debug().Msg("no viewer attached, dropping frame")
				return
			}
			ls.logger.Warn().Err(err).Msg("failed to open live stream FIFO")
			return
		}
		// Switch to blocking mode: from here on, the writer goroutine
		// absorbs backpressure, never the capture producer.
		if err := unix.SetNonblock(fd, false); err != nil {
			ls.logger.Warn().Err(err).Msg("failed to clear O_NONBLOCK on live stream FIFO")
			unix.Close(fd)
			return
		}
		ls.fd = fd
	}

	written := 0
	for written < len(frame) {
		n, err := unix.Write(ls.fd, frame[written:])
		if err != nil {
			if errors.Is(err, unix.EPIPE) || errors.Is(err, unix.EBADF) {
				ls.logger.Debug().Err(err).Msg("live stream viewer disconnected")
			} else {
				ls.logger.Warn().Err(err).Msg("live stream write failed")
			}
			ls.closeFD()
			return
		}
		written += n
	}
}

func (ls *LiveStreamer) closeFD() {
	if ls.fd >= 0 {
		unix.Close(ls.fd)
		ls.fd = -1
	}
}
