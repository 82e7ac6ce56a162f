// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a registry file must be quiet before it is
// reloaded. Editors often write a file in several steps.
const DefaultDebounce = 300 * time.Millisecond

// ReloadFunc receives every registry that loaded successfully after a change.
type ReloadFunc func(ctx context.Context, cfg *RegistryConfig) error

// WatcherStats counts watcher activity.
type WatcherStats struct {
	Events     int
	Reloads    int
	Failures   int
	LastReload time.Time
	LastError  string
}

// Watcher reloads a registry file when it changes.
//
// # Description
//
// The parent directory is watched rather than the file so that editors that
// save by rename keep being noticed. Events for other files are ignored.
// A registry that fails to load is logged and skipped; the caller keeps
// whatever it loaded last.
//
// # Thread Safety
//
// Start and Stop are safe for concurrent use. A stopped watcher can be
// started again. The reload callback runs on the watcher goroutine.
type Watcher struct {
	mu       sync.Mutex
	path     string
	onReload ReloadFunc
	logger   *slog.Logger
	debounce time.Duration
	pending  time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	stats    WatcherStats
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger. Defaults to slog.Default().
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for the registry at path.
//
// # Inputs
//
//   - path: Registry file. It need not exist yet, but its directory must.
//   - onReload: Called with each successfully reloaded registry. Must not be nil.
func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	if onReload == nil {
		panic("NewWatcher: onReload must not be nil")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("NewWatcher: %w", err)
	}

	w := &Watcher{
		path:     abs,
		onReload: onReload,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Start begins watching. Non-blocking; the event loop runs until ctx is done
// or Stop is called. Calling Start on a running watcher does nothing.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.doneCh != nil {
		select {
		case <-w.doneCh:
			// The loop ended with its context; start a fresh one.
		default:
			return nil
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("Watcher.Start: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("Watcher.Start: watch %s: %w", dir, err)
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.pending = time.Time{}
	w.logger.Info("registry watcher started", slog.String("path", w.path))

	go w.run(ctx, fw, w.stopCh, w.doneCh)
	return nil
}

// Stop ends the event loop and waits for it to release the underlying
// watcher. Safe to call more than once or before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	stopCh, doneCh := w.stopCh, w.doneCh
	w.stopCh, w.doneCh = nil, nil
	w.mu.Unlock()

	if doneCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer func() {
		if err := fw.Close(); err != nil {
			w.logger.Warn("registry watcher close failed", slog.String("error", err.Error()))
		}
	}()

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-stopCh:
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("registry watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// handleEvent marks the registry dirty on writes, creates, and renames onto
// the watched path.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.logger.Debug("registry file changed",
		slog.String("path", event.Name),
		slog.String("op", event.Op.String()),
	)

	w.mu.Lock()
	w.stats.Events++
	w.pending = time.Now()
	w.mu.Unlock()
}

// processPending reloads once the file has been quiet for the debounce period.
func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	err := w.reload(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.stats.Failures++
		w.stats.LastError = err.Error()
		w.logger.Warn("registry reload failed, keeping previous registry",
			slog.String("path", w.path),
			slog.String("error", err.Error()),
		)
		return
	}
	w.stats.Reloads++
	w.stats.LastReload = time.Now()
	w.stats.LastError = ""
}

func (w *Watcher) reload(ctx context.Context) error {
	cfg, err := LoadRegistryFile(ctx, w.path)
	if err != nil {
		return err
	}
	if err := w.onReload(ctx, cfg); err != nil {
		return fmt.Errorf("reload callback: %w", err)
	}
	w.logger.Info("registry reloaded",
		slog.String("path", w.path),
		slog.Int("commands", len(cfg.Commands)),
	)
	return nil
}
