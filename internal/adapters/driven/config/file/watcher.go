package file

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/finsight/internal/core/ports/driven"
	"github.com/custodia-labs/finsight/internal/logger"
)

// PromptWatcher reloads a PromptStore whenever a prompt file in its
// directory changes, so a long-running server uses edited prompts
// without a restart.
type PromptWatcher struct {
	store   driven.PromptStore
	watcher *fsnotify.Watcher
	done    chan struct{}
	started atomic.Bool

	// onReload is called after each reload. Tests use it to synchronise.
	onReload func(name string)
}

// NewPromptWatcher watches dir for changes to *.txt prompt files.
// The directory must exist.
func NewPromptWatcher(store driven.PromptStore, dir string) (*PromptWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create prompt watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch prompt directory %s: %w", dir, err)
	}

	return &PromptWatcher{
		store:   store,
		watcher: w,
		done:    make(chan struct{}),
	}, nil
}

// Start runs the event loop until ctx is cancelled or Close is called.
func (w *PromptWatcher) Start(ctx context.Context) {
	if w.started.Swap(true) {
		return
	}
	go w.loop(ctx)
}

func (w *PromptWatcher) loop(ctx context.Context) {
	defer close(w.done)
	logger.Debug("Prompt watcher started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Prompt watcher stopped")
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isPromptChange(event) {
				continue
			}
			w.store.Reload()
			name := filepath.Base(event.Name)
			logger.Info("Prompt %s changed, reloaded", name)
			if w.onReload != nil {
				w.onReload(name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Prompt watcher error: %v", err)
		}
	}
}

// isPromptChange reports whether event touches a prompt template file.
func isPromptChange(event fsnotify.Event) bool {
	if filepath.Ext(event.Name) != ".txt" {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

// Close stops watching. It is safe to call after ctx was cancelled.
func (w *PromptWatcher) Close() error {
	err := w.watcher.Close()
	if w.started.Load() {
		<-w.done
	}
	return err
}
