package agent

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// StopSignal reports whether an external stop request has been observed.
// AgentLoop checks it once per step instead of stat-ing the stop file
// directly when one is attached.
type StopSignal interface {
	Triggered() bool
}

// StopWatcher watches the directory containing a stop-file path and latches
// a flag the moment the file is created, instead of polling os.Stat on
// every step. Build one with NewStopWatcher and attach it to an AgentLoop
// via the StopSignal field; Close stops the underlying fsnotify watcher.
type StopWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	flag    atomic.Bool
	logger  zerolog.Logger
}

// NewStopWatcher starts watching path's parent directory for its creation.
// If path already exists, the flag starts latched. Returns an error only
// if the fsnotify watcher itself could not be created; callers that want
// the stat-polling fallback can simply not attach a StopWatcher.
func NewStopWatcher(path string, logger zerolog.Logger) (*StopWatcher, error) {
	dir := filepath.Dir(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}

	sw := &StopWatcher{
		path:    path,
		watcher: w,
		logger:  logger.With().Str("component", "stop_watcher").Str("path", path).Logger(),
	}
	if _, err := os.Stat(path); err == nil {
		sw.flag.Store(true)
	}

	go sw.run()
	return sw, nil
}

func (sw *StopWatcher) run() {
	for {
		select {
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if ev.Name == sw.path && (ev.Op&(fsnotify.Create|fsnotify.Write) != 0) {
				sw.flag.Store(true)
				sw.logger.Info().Msg("stop file observed")
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Warn().Err(err).Msg("stop watcher error")
		}
	}
}

// Triggered implements StopSignal.
func (sw *StopWatcher) Triggered() bool {
	return sw.flag.Load()
}

// Close releases the underlying fsnotify watcher.
func (sw *StopWatcher) Close() error {
	return sw.watcher.Close()
}
