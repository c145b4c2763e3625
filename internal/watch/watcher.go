// Package watch notices changes made to a repository by other tools and
// asks for a snapshot refresh.
package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces the burst of writes a single git command makes.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches a .git directory and calls onChange once per burst of
// relevant events.
type Watcher struct {
	fs       *fsnotify.Watcher
	gitDir   string
	debounce time.Duration
	onChange func()
	log      zerolog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// New starts watching gitDir, its refs tree and HEAD/index. Nothing is
// delivered until Run is called.
func New(gitDir string, debounce time.Duration, onChange func(), log zerolog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fw,
		gitDir:   gitDir,
		debounce: debounce,
		onChange: onChange,
		log:      log.With().Str("component", "watch").Str("dir", gitDir).Logger(),
	}

	if err := fw.Add(gitDir); err != nil {
		fw.Close()
		return nil, err
	}
	// fsnotify is not recursive; refs/ holds the branch files we care about
	_ = filepath.WalkDir(filepath.Join(gitDir, "refs"), func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			w.add(path)
		}
		return nil
	})
	return w, nil
}

func (w *Watcher) add(dir string) {
	if err := w.fs.Add(dir); err != nil {
		w.log.Warn().Err(err).Str("path", dir).Msg("cannot watch directory")
	}
}

// Run delivers change notifications until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	defer w.stopTimer()

	w.log.Info().Msg("watching repository for changes")
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 && w.isNewRefDir(event.Name) {
				w.add(event.Name)
			}
			if ShouldIgnore(event) {
				continue
			}
			w.log.Debug().Str("file", filepath.Base(event.Name)).Stringer("op", event.Op).Msg("change detected")
			w.schedule()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) isNewRefDir(path string) bool {
	rel, err := filepath.Rel(w.gitDir, path)
	if err != nil || !strings.HasPrefix(filepath.ToSlash(rel), "refs/") {
		return false
	}
	return isDir(path)
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// ShouldIgnore filters lock files, reflogs, object writes and pure chmod or
// remove noise that every git command produces.
func ShouldIgnore(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return true
	}
	base := filepath.Base(event.Name)
	path := filepath.ToSlash(event.Name)

	switch {
	case strings.HasSuffix(base, ".lock"):
		return true
	case strings.Contains(path, "/logs/"):
		return true
	case strings.Contains(path, "/objects/"):
		return true
	case base == "config", base == "FETCH_HEAD", base == "ORIG_HEAD":
		return true
	}
	return false
}
