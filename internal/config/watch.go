package config

import (
	"context"
	"fmt"
	"os"
	"time"
)

// PlacesWatcher polls places.yaml by modification time and hands every
// successfully reloaded catalogue to OnUpdate.
type PlacesWatcher struct {
	path     string
	interval time.Duration
	lastMod  time.Time

	OnUpdate func(*PlacesConfig)
	OnError  func(error)
}

// NewPlacesWatcher creates a watcher; it does not read the file yet.
func NewPlacesWatcher(path string, interval time.Duration) *PlacesWatcher {
	if path == "" {
		path = "configs/places.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PlacesWatcher{path: path, interval: interval}
}

// Poll reloads the file when it changed since the last successful load.
// A broken file is reported and retried on the next poll.
func (w *PlacesWatcher) Poll() (bool, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return false, fmt.Errorf("stat places config: %w", err)
	}
	if !w.lastMod.IsZero() && !info.ModTime().After(w.lastMod) {
		return false, nil
	}

	cfg, err := LoadPlacesConfig(w.path)
	if err != nil {
		return false, err
	}
	w.lastMod = info.ModTime()
	if w.OnUpdate != nil {
		w.OnUpdate(cfg)
	}
	return true, nil
}

// Run polls until ctx is done.
func (w *PlacesWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Poll(); err != nil && w.OnError != nil {
				w.OnError(err)
			}
		}
	}
}

// WatchPlaces performs an initial load, failing if it cannot, and then keeps
// polling in the background.
func WatchPlaces(ctx context.Context, path string, interval time.Duration, onUpdate func(*PlacesConfig), onError func(error)) error {
	w := NewPlacesWatcher(path, interval)
	w.OnUpdate = onUpdate
	w.OnError = onError
	if _, err := w.Poll(); err != nil {
		return err
	}
	go w.Run(ctx)
	return nil
}
