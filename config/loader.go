package config

import (
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/gapilongo/OPiN/errors"
)

// Loader holds the current configuration and hot-reloads it when the file
// changes on disk. A reload that fails to parse or validate is dropped and
// the previous configuration stays in effect.
type Loader struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
}

// NewLoader performs the initial load.
func NewLoader(path string, logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Loader{
		path:    path,
		logger:  logger.With("component", "config-loader"),
		current: cfg,
	}, nil
}

// Config returns the latest configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked after every successful reload.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch reloads the configuration on file writes until the returned stop
// function is called.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "config", "Watch", "creating watcher")
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, errors.Wrap(err, "config", "Watch", "watching "+l.path)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					l.reload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("config watcher error", "error", err)
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

func (l *Loader) reload() {
	cfg, err := Load(l.path)
	if err != nil {
		l.logger.Warn("config reload failed, keeping previous", "error", err)
		return
	}

	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*Config), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()

	l.logger.Info("configuration reloaded", "path", l.path)
	for _, fn := range callbacks {
		fn(cfg)
	}
}
