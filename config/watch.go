package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig controls the hot-reload watcher's timing.
type WatchConfig struct {
	Enabled      bool
	CooldownTime time.Duration
}

// DefaultWatchConfig enables hot reload with a conservative cooldown so a
// burst of filesystem events doesn't thrash the pipeline.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{Enabled: true, CooldownTime: 5 * time.Second}
}

// Watcher reloads an AppConfig from disk on change and applies only its
// ambient fields (risk thresholds, fill seed, sink batch size, logging,
// metrics address) to a running engine. Quote parameters are deliberately
// excluded: per the static-parameters-per-run decision, a mid-session γ/σ/
// T/κ change is never applied even if present in the edited file.
type Watcher struct {
	path    string
	cfg     WatchConfig
	watcher *fsnotify.Watcher

	mu         sync.Mutex
	lastReload time.Time
	onReload   func(AppConfig) error

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewWatcher builds a Watcher over path. onReload is invoked with the
// freshly loaded and validated config on every debounced change.
func NewWatcher(path string, cfg WatchConfig, onReload func(AppConfig) error) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	return &Watcher{
		path:     path,
		cfg:      cfg,
		watcher:  fw,
		onReload: onReload,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}, nil
}

// Start begins watching the config file for writes. A no-op if disabled.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.Enabled {
		return nil
	}
	if err := w.watcher.Add(w.path); err != nil {
		return fmt.Errorf("config: watch %s: %w", w.path, err)
	}
	go w.watch(ctx)
	return nil
}

// Stop halts watching and releases the underlying filesystem handle.
func (w *Watcher) Stop() error {
	if !w.cfg.Enabled {
		return w.watcher.Close()
	}
	select {
	case <-w.stopChan:
	default:
		close(w.stopChan)
	}
	select {
	case <-w.doneChan:
	case <-time.After(time.Second):
	}
	return w.watcher.Close()
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneChan)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				w.handleChange()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handleChange() {
	w.mu.Lock()
	if time.Since(w.lastReload) < w.cfg.CooldownTime {
		w.mu.Unlock()
		return
	}
	w.lastReload = time.Now()
	w.mu.Unlock()

	full, err := Load(w.path)
	if err != nil {
		return
	}
	if w.onReload != nil {
		_ = w.onReload(AmbientOnly(full))
	}
}

// AmbientOnly returns a copy of full with its Quote field zeroed out,
// making explicit that only ambient sections are meant to flow into a
// running engine's reload path; callers that need the quote section
// untouched should ignore it on the returned value rather than apply it.
func AmbientOnly(full AppConfig) AppConfig {
	full.Quote = QuoteConfig{}
	return full
}
