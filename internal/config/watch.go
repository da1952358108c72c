package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cjeanneret/SnapGo/internal/debug"
	"github.com/cjeanneret/SnapGo/internal/logic/debounce"
)

// watchSettle collapses the write bursts editors produce into one reload.
const watchSettle = 250 * time.Millisecond

// Watch reloads the config file whenever it changes on disk and hands the
// fresh configuration to onChange. Reload failures are logged and skipped;
// the previous configuration stays in effect. The returned stop function
// ends the watch.
//
// The parent directory is watched rather than the file itself, since many
// editors replace the file on save (rename drops the watch on the inode).
func Watch(path string, onChange func(*Config)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch config dir %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	deb := debounce.New(watchSettle)

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				debug.Watch(ev.Op.String(), ev.Name)
				deb.Trigger(func() {
					cfg, err := Load(target)
					if err != nil {
						debug.Error(fmt.Errorf("config reload skipped: %w", err))
						return
					}
					debug.Info("Config reloaded from %s", target)
					onChange(cfg)
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				debug.Error(fmt.Errorf("config watch: %w", err))
			}
		}
	}()

	return func() {
		deb.Stop()
		_ = watcher.Close()
	}, nil
}
