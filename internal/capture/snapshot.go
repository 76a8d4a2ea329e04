package capture

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// LatestSnapshot (C2) atomically publishes the most recent frame to a
// single well-known path. Readers either observe the previous complete
// frame or the new one, never a partial write, because publication goes
// through a sibling temp file, an fsync, and an atomic rename.
type LatestSnapshot struct {
	path string
}

// NewLatestSnapshot returns a publisher for the given path (spec.md §6,
// <RUN_DIR>/latest.jpg).
func NewLatestSnapshot(path string) *LatestSnapshot {
	return &LatestSnapshot{path: path}
}

// Path returns the snapshot's well-known publication path.
func (s *LatestSnapshot) Path() string {
	return s.path
}

// Publish writes frame to the snapshot path atomically: create a sibling
// "<path>.tmp", write all bytes, fsync, then rename over path. It never
// truncates path in place.
func (s *LatestSnapshot) Publish(frame Frame) error {
	if err := ValidateFrame(frame); err != nil {
		return fmt.Errorf("capture: refusing to publish malformed frame: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("capture: create snapshot dir: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("capture: open temp snapshot: %w", err)
	}

	if _, err := f.Write(frame); err != nil {
		f.Close()
		return fmt.Errorf("capture: write temp snapshot: %w", err)
	}
	if err := unix.Fsync(int(f.Fd())); err != nil {
		f.Close()
		return fmt.Errorf("capture: fsync temp snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("capture: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("capture: rename temp snapshot into place: %w", err)
	}
	return nil
}

// Read loads the current snapshot contents, if any.
func (s *LatestSnapshot) Read() (Frame, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}

// ModTime returns the snapshot file's modification time, used by
// AgentLoop's frame-freshness checks. It returns an error if the
// snapshot has never been published.
func (s *LatestSnapshot) ModTime() (int64, error) {
	st, err := os.Stat(s.path)
	if err != nil {
		return 0, err
	}
	return st.ModTime().UnixNano(), nil
}
