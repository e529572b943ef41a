package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/newapi-usage-tui/internal/logger"
)

const debounceInterval = 100 * time.Millisecond

// Watcher reloads the YAML config file when it changes on disk.
type Watcher struct {
	watcher       *fsnotify.Watcher
	onChange      func(*File)
	onError       func(error)
	stopChan      chan struct{}
	debounceTimer *time.Timer
	path          string
	mu            sync.Mutex
	closeOnce     sync.Once
}

// Watch starts watching path. onChange receives every successfully parsed
// version; onError receives parse and watcher errors. Either may be nil.
func Watch(path string, onChange func(*File), onError func(error)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory (to catch editors that replace the file)
	dir := filepath.Dir(path)
	if err := ensureDir(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return nil, err
	}

	w := &Watcher{
		watcher:  watcher,
		onChange: onChange,
		onError:  onError,
		stopChan: make(chan struct{}),
		path:     path,
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.mu.Lock()
			if w.debounceTimer != nil {
				w.debounceTimer.Stop()
			}
			w.debounceTimer = time.AfterFunc(debounceInterval, w.reload)
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(err)

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) reload() {
	f, err := LoadFile(w.path)
	if err != nil {
		w.report(err)
		return
	}
	logger.Info("config file reloaded", "path", w.path, "providers", len(f.Providers))
	if w.onChange != nil {
		w.onChange(f)
	}
}

func (w *Watcher) report(err error) {
	logger.Warn("config watcher error", "path", w.path, "error", err)
	if w.onError != nil {
		w.onError(err)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stopChan)
		w.mu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}
