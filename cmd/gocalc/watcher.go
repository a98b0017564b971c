package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settingsWatcher calls reload whenever the settings file is written or
// replaced.
type settingsWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	reload   func(string) error
	logger   *slog.Logger
	debounce time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func newSettingsWatcher(path string, reload func(string) error, logger *slog.Logger) (*settingsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &settingsWatcher{
		path:     path,
		watcher:  watcher,
		reload:   reload,
		logger:   logger,
		debounce: 200 * time.Millisecond,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start watches the directory holding the file, since editors often save by
// renaming a temporary file over it.
func (w *settingsWatcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.logger.Info("Settings watcher started", "path", w.path)
	go w.loop(ctx)
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (w *settingsWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *settingsWatcher) loop(ctx context.Context) {
	defer close(w.done)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.isSettingsEvent(event) || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			w.logger.Debug("Settings file event", "event", event.Op.String(), "file", event.Name)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.trigger)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Settings watcher error", "error", err)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (w *settingsWatcher) isSettingsEvent(event fsnotify.Event) bool {
	eventPath, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	path, err := filepath.Abs(w.path)
	if err != nil {
		return false
	}
	return eventPath == path
}

func (w *settingsWatcher) trigger() {
	start := time.Now()
	if err := w.reload(w.path); err != nil {
		w.logger.Error("Settings reload failed, keeping previous settings", "error", err, "duration", time.Since(start))
		return
	}
	w.logger.Info("Settings reloaded", "path", w.path, "duration", time.Since(start))
}
