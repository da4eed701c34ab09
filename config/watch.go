package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"blundertutor/telemetry/logging"
)

// Watcher re-reads a config file whenever it is written or created on
// disk. Each reload parses and validates the whole file and hands the
// complete Config to the onChange callback; which of its fields are
// applied to work already in flight is up to that callback.
type Watcher struct {
	path string
	fsw  *fsnotify.Watcher
	log  logging.Logger
}

// NewWatcher starts watching the directory containing path (matching the
// teacher's approach of watching the directory rather than the file,
// since editors often replace files instead of writing in place).
func NewWatcher(path string, log logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	if log == nil {
		log = logging.NoOp()
	}
	return &Watcher{path: path, fsw: fsw, log: log}, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run blocks, invoking onChange with the freshly parsed config every time
// path is written, until ctx is cancelled. Parse errors are logged and
// otherwise ignored: a bad edit must not crash a running coordinator.
func (w *Watcher) Run(ctx context.Context, onChange func(*Config)) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Name != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.log.WarnCtx(ctx, "config reload failed", "path", w.path, "error", err)
				continue
			}
			onChange(cfg)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WarnCtx(ctx, "config watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}
