package cli

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/tobert/reactmon/internal/fetch"
)

// ConfigWatcher re-reads the config file when it changes and applies
// the monitored host to the live target. Only monitored_host is
// hot-reloadable; everything else needs a restart.
type ConfigWatcher struct {
	watcher *fsnotify.Watcher
}

// WatchConfig starts watching the config file at path. Editors often
// replace files instead of writing in place, so the parent directory
// is watched and events are filtered down to the file itself.
func WatchConfig(ctx context.Context, path string, target *fetch.Target, logger *zap.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				applyConfigChange(abs, target, logger)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", zap.Error(err))
			}
		}
	}()

	return &ConfigWatcher{watcher: watcher}, nil
}

// Close stops watching.
func (w *ConfigWatcher) Close() error {
	return w.watcher.Close()
}

// applyConfigChange reloads the file and repoints the target when the
// monitored host changed. A file that fails to parse mid-edit is
// skipped; the next write gets another chance.
func applyConfigChange(path string, target *fetch.Target, logger *zap.Logger) {
	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		logger.Warn("config reload skipped", zap.String("path", path), zap.Error(err))
		return
	}
	if cfg.MonitoredHost == "" || cfg.MonitoredHost == target.Address() {
		return
	}

	previous := target.Address()
	target.Set(cfg.MonitoredHost)
	logger.Info("monitored host reloaded from config",
		zap.String("previous", previous),
		zap.String("host", cfg.MonitoredHost))
}
