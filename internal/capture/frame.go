// Package capture implements the MJPEG acquisition pipeline: a supervised
// V4L2 decoder subprocess, an atomic "latest frame" publisher, and a
// drop-oldest live-streaming fan-out, tied together by a dual-rate
// scheduling loop.
package capture

import (
	"bytes"
	"errors"
)

// soi and eoi are the JPEG Start-Of-Image and End-Of-Image markers that
// frame every byte sequence this package produces or consumes.
var (
	soi = []byte{0xFF, 0xD8}
	eoi = []byte{0xFF, 0xD9}
)

// ErrNotAFrame is returned when a byte sequence does not satisfy the
// SOI...EOI framing invariant.
var ErrNotAFrame = errors.New("capture: not a well-formed JPEG frame")

// Frame is an opaque, complete JPEG image: it begins with SOI, ends with
// EOI, and contains no other EOI before its own terminator.
type Frame []byte

// ValidateFrame checks the SOI/EOI framing invariant described in
// spec.md §3 (Frame). It does not attempt to decode the JPEG payload.
func ValidateFrame(b []byte) error {
	if len(b) < 4 {
		return ErrNotAFrame
	}
	if !bytes.HasPrefix(b, soi) {
		return ErrNotAFrame
	}
	if !bytes.HasSuffix(b, eoi) {
		return ErrNotAFrame
	}
	// No interior EOI except the terminating one.
	if idx := bytes.Index(b[:len(b)-2], eoi); idx >= 0 {
		return ErrNotAFrame
	}
	return nil
}

// Clone returns a copy of the frame's bytes so that callers may retain it
// independently of any buffer the producer reuses.
func (f Frame) Clone() Frame {
	out := make(Frame, len(f))
	copy(out, f)
	return out
}
