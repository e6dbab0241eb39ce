// Package watcher turns file changes under the filesystem root into FILE
// sync tasks, one per {owner}/{repo} directory.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"insight_sync/internal/domain"
)

type Enqueuer interface {
	Enqueue(task domain.SyncTask) (string, error)
}

type Watcher struct {
	root     string
	debounce time.Duration
	enqueuer Enqueuer
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func New(root string, debounce time.Duration, enqueuer Enqueuer, logger *slog.Logger) *Watcher {
	return &Watcher{
		root:     filepath.Clean(root),
		debounce: debounce,
		enqueuer: enqueuer,
		logger:   logger.With("component", "watcher"),
		pending:  make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled. Repositories are enqueued once their
// directory has been quiet for the debounce period.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watcher started", "root", w.root, "debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			w.stopPending()
			w.logger.Info("watcher stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() && !isVCS(ev.Name) {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", addErr)
					}
				}
			}
			if dir, ok := w.repoDir(ev.Name); ok {
				w.schedule(dir)
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", watchErr)
		}
	}
}

// repoDir maps a changed path to its {root}/{owner}/{repo} directory.
func (w *Watcher) repoDir(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return "", false
	}
	if len(parts) > 2 && parts[2] == ".git" {
		return "", false
	}
	return filepath.Join(w.root, parts[0], parts[1]), true
}

func (w *Watcher) schedule(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[dir]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[dir] = time.AfterFunc(w.debounce, func() {
		w.fire(dir)
	})
}

func (w *Watcher) fire(dir string) {
	w.mu.Lock()
	delete(w.pending, dir)
	w.mu.Unlock()

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		w.logger.Debug("repository directory gone, skipping", "path", dir)
		return
	}

	task := domain.FileTaskForPath(dir)
	if _, err := w.enqueuer.Enqueue(task); err != nil {
		w.logger.Error("failed to enqueue local repository", "path", dir, "error", err)
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for dir, t := range w.pending {
		t.Stop()
		delete(w.pending, dir)
	}
}

func isVCS(path string) bool {
	return filepath.Base(path) == ".git"
}

func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if isVCS(path) {
			return fs.SkipDir
		}
		return fw.Add(path)
	})
}
