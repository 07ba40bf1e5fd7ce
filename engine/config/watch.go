package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads the file at path whenever it is written or recreated and passes the
// result to fn. Decode failures are logged and the previous configuration stays active.
// Watch returns once the watcher is running; it stops when ctx is cancelled.
//
// Parameters:
//   - ctx: cancels the watch goroutine
//   - path: the configuration file
//   - lg: logger for reload events, may be nil
//   - fn: receives every successfully decoded configuration
//
// Returns:
//   - error: if the watcher could not be created
func Watch(ctx context.Context, path string, lg *logger.Logger, fn func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	// editors often replace the file, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	target := filepath.Clean(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
					cfg, err := Load(path)
					if err != nil {
						lg.Warnf("config: reload %s: %v", path, err)
						continue
					}
					lg.Info("config reloaded", "path", path)
					fn(cfg)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				lg.Warnf("config: watcher: %v", err)
			}
		}
	}()
	return nil
}
