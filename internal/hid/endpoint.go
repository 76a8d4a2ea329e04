package hid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// DefaultIOTimeout bounds how long Write retries before giving up
// (spec.md §4.6).
const DefaultIOTimeout = 5 * time.Second

const eagainRetryInterval = 1 * time.Millisecond
const reopenBackoff = 50 * time.Millisecond

// ErrTimeout is returned when a write could not complete within the
// endpoint's IOTimeout.
var ErrTimeout = errors.New("hid: write timeout")

// Endpoint (C6) wraps one HID character device with a lazily-opened
// non-blocking file descriptor. Write retries EAGAIN until IOTimeout and
// reopens the descriptor on EPIPE/I/O error, keeping it either open and
// validated or fully closed — never half-open across a broken pipe.
type Endpoint struct {
	path      string
	IOTimeout time.Duration
	logger    zerolog.Logger

	mu sync.Mutex
	fd int // -1 when closed
}

// NewEndpoint returns an Endpoint for the HID device at path.
func NewEndpoint(path string, logger zerolog.Logger) *Endpoint {
	return &Endpoint{
		path:      path,
		IOTimeout: DefaultIOTimeout,
		logger:    logger.With().Str("component", "hid_endpoint").Str("dev", path).Logger(),
		fd:        -1,
	}
}

// Write sends report in full, retrying on transient conditions until
// IOTimeout elapses.
func (e *Endpoint) Write(report []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	deadline := time.Now().Add(e.IOTimeout)
	for {
		fd, err := e.getFD()
		if err == nil {
			var n int
			n, err = unix.Write(fd, report)
			if err == nil {
				if n >= len(report) {
					return nil
				}
				report = report[n:]
				if time.Now().After(deadline) {
					return fmt.Errorf("%w: dev=%s", ErrTimeout, e.path)
				}
				continue
			}
		}

		if errors.Is(err, unix.EAGAIN) {
			if time.Now().After(deadline) {
				return fmt.Errorf("%w: dev=%s", ErrTimeout, e.path)
			}
			time.Sleep(eagainRetryInterval)
			continue
		}

		// EPIPE or any other I/O error: drop the descriptor and retry
		// the open+write loop after a short backoff, matching the
		// assumption that the gadget may be mid-reconfiguration.
		e.closeFDLocked()
		if time.Now().After(deadline) {
			return fmt.Errorf("hid: write failed dev=%s: %w", e.path, err)
		}
		time.Sleep(reopenBackoff)
	}
}

func (e *Endpoint) getFD() (int, error) {
	if e.fd >= 0 {
		return e.fd, nil
	}
	fd, err := unix.Open(e.path, unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return -1, err
	}
	e.fd = fd
	return fd, nil
}

func (e *Endpoint) closeFDLocked() {
	if e.fd >= 0 {
		unix.Close(e.fd)
		e.fd = -1
	}
}

// Close releases the underlying file descriptor, if open.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeFDLocked()
	return nil
}

// WriteContext is Write with early cancellation on ctx, used by callers
// that must respect a run's overall timeout in addition to IOTimeout.
func (e *Endpoint) WriteContext(ctx context.Context, report []byte) error {
	done := make(chan error, 1)
	go func() { done <- e.Write(report) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
