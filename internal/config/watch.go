package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the configuration file when it changes on disk and hands
// every valid revision to a callback. Invalid revisions are logged and
// ignored, so the last good configuration stays in effect.
type Watcher struct {
	path     string
	debounce time.Duration
	log      *zap.Logger
	onChange func(*Config)
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, log *zap.Logger, onChange func(*Config)) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		path:     path,
		debounce: 500 * time.Millisecond,
		log:      log.Named("config"),
		onChange: onChange,
	}
}

// Run blocks until ctx is cancelled. The parent directory is watched rather
// than the file itself because editors commonly replace files by rename.
// When watching cannot start, the failure is logged and Run returns nil:
// the configuration loaded at startup simply stays in effect.
func (w *Watcher) Run(ctx context.Context) error {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		w.log.Warn("configuration reload disabled", zap.Error(err))
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn("configuration reload disabled", zap.String("path", abs), zap.Error(err))
		return nil
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		w.log.Warn("configuration reload disabled", zap.String("path", abs), zap.Error(err))
		return nil
	}
	w.log.Debug("watching configuration", zap.String("path", abs))

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			cfg, err := Load(abs)
			if err != nil {
				w.log.Warn("ignoring configuration change", zap.Error(err))
				continue
			}
			w.log.Info("configuration reloaded", zap.String("path", abs))
			w.onChange(cfg)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("configuration watcher error", zap.Error(err))
		}
	}
}
