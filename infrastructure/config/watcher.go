package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-reads the config file on change and hands the parsed result to a
// callback. Only the callback decides which fields are safe to apply live;
// everything else takes effect on the next restart.
type Watcher struct {
	path     string
	logger   *zap.Logger
	onChange func(*Config)
	fs       *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given config file. An empty path
// returns a nil watcher, which is safe to Start and Close.
func NewWatcher(path string, logger *zap.Logger, onChange func(*Config)) (*Watcher, error) {
	if path == "" {
		return nil, nil
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(path); err != nil {
		fs.Close()
		return nil, err
	}
	return &Watcher{path: path, logger: logger, onChange: onChange, fs: fs}, nil
}

// Start watches until the context is cancelled
func (w *Watcher) Start(ctx context.Context) {
	if w == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.fs.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				w.reload()
			case err, ok := <-w.fs.Errors:
				if !ok {
					return
				}
				w.logger.Warn("Config watcher error", zap.Error(err))
			}
		}
	}()
}

func (w *Watcher) reload() {
	cfg := defaults()
	if err := cfg.loadFile(w.path); err != nil {
		w.logger.Warn("Ignoring unreadable config change", zap.Error(err))
		return
	}
	cfg.overlayEnv()
	cfg.ConfigFile = w.path
	if err := cfg.Validate(); err != nil {
		w.logger.Warn("Ignoring invalid config change", zap.Error(err))
		return
	}
	w.logger.Info("Config reloaded", zap.String("path", w.path))
	w.onChange(cfg)
}

// Close stops the watcher
func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	return w.fs.Close()
}
