package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// Watch rebuilds the index whenever a source directory or hierarchy marker
// changes. Rapid change bursts are debounced into a single refresh. Blocks
// until ctx is cancelled.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return NewConfigError(m.startDir, "failed to create file watcher", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	for _, c := range m.Contexts() {
		dirs := append([]string{c.RootPath}, c.SourceDirs...)
		for _, dir := range dirs {
			if watched[dir] {
				continue
			}
			if err := watcher.Add(dir); err != nil {
				slog.Warn("Failed to watch directory", "dir", dir, "error", err)
				continue
			}
			watched[dir] = true
		}
	}

	slog.Info("Watching configuration sources", "dirs", len(watched))

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantWatchEvent(event) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				if err := m.Refresh(); err != nil {
					slog.Error("Failed to refresh configuration after change", "error", err)
					return
				}
				slog.Debug("Configuration reindexed", "trigger", event.Name)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", "error", err)
		}
	}
}

func relevantWatchEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if base == MarkerFileName {
		return true
	}
	return componentFileExts[filepath.Ext(base)]
}
