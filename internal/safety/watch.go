package safety

import (
	"github.com/fsnotify/fsnotify"

	"github.com/zfs-agent/zfs-agent/internal/logging"
)

// WatchSettings watches settingsPath for edits and re-applies the
// compatibility check on every write, so an operator widening the approved
// version range does not require a restart. It runs until stop is closed.
func WatchSettings(l *Lock, settingsPath string, stop <-chan struct{}) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warning("safety: settings watcher unavailable: %v", err)
		return
	}
	defer watcher.Close()

	dir := settingsDir(settingsPath)
	if err := watcher.Add(dir); err != nil {
		logging.Warning("safety: cannot watch %s: %v", dir, err)
		return
	}

	for {
		select {
		case <-stop:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != settingsPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			l.Reload(settingsPath)
			logging.Info("safety: settings.json changed, reloaded compatibility range: %s", l.Status().ApprovedRange)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Warning("safety: settings watcher error: %v", err)
		}
	}
}

func settingsDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
