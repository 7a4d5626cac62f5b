package config

import (
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Listener is notified after every reload attempt: with the new config on
// success, or with a nil config and the validation/load error on failure.
type Listener func(cfg *Config, err error)

// Watcher holds the active configuration and replaces it when the source
// file changes. Replacement is fail-safe: a candidate that does not validate
// is discarded and the previous configuration stays active. Swaps are atomic,
// so readers never observe a partially updated configuration.
type Watcher struct {
	path   string
	logger *zap.Logger
	active atomic.Pointer[Config]

	mu        sync.Mutex
	listeners []Listener
	watching  bool
	fileViper *viper.Viper
}

// NewWatcher loads path and returns a watcher with that configuration
// active. The initial load must succeed.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: path, logger: logger}
	w.active.Store(cfg)
	return w, nil
}

// Active returns the currently active configuration snapshot. Callers should
// read it once per batch cycle and use that snapshot for the whole cycle.
func (w *Watcher) Active() *Config {
	return w.active.Load()
}

// Subscribe registers a listener invoked synchronously after each reload
// attempt.
func (w *Watcher) Subscribe(l Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, l)
}

// Watch starts monitoring the configuration file for external changes.
// Safe to call once; no-op when the watcher was built without a path.
func (w *Watcher) Watch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching || w.path == "" {
		return
	}
	w.watching = true

	v := viper.New()
	v.SetConfigFile(w.path)
	v.OnConfigChange(func(fsnotify.Event) {
		if err := w.Reload(); err != nil {
			w.logger.Warn("config reload rejected, previous configuration stays active",
				zap.String("path", w.path),
				zap.Error(err))
		}
	})
	v.WatchConfig()
	w.fileViper = v
}

// Reload re-reads the source, swaps the active configuration on success and
// notifies listeners either way. On failure the previous configuration
// remains in force.
func (w *Watcher) Reload() error {
	cfg, err := Load(w.path)
	if err == nil {
		w.active.Store(cfg)
		w.logger.Info("configuration reloaded", zap.String("path", w.path))
	}
	w.notify(cfg, err)
	return err
}

func (w *Watcher) notify(cfg *Config, err error) {
	w.mu.Lock()
	listeners := make([]Listener, len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	for _, l := range listeners {
		l(cfg, err)
	}
}
