// Package watch keeps destination directory in sync with documents changing
// in a source tree.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/maruel/natural"
	"go.uber.org/zap"
)

// ProcessFunc rewrites single changed file located under root into dst.
type ProcessFunc func(ctx context.Context, root, path, dst string, log *zap.Logger) error

// Watcher collects file system events for a directory tree and hands files
// which stopped changing for debounce interval to ProcessFunc.
type Watcher struct {
	src, dst string
	debounce time.Duration
	process  ProcessFunc

	fsw     *fsnotify.Watcher
	pending map[string]time.Time
	log     *zap.Logger
}

// New prepares watcher for src directory. Events inside dst are ignored when
// dst is located under src and is not src itself.
func New(src, dst string, debounce time.Duration, process ProcessFunc, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create file system watcher: %w", err)
	}
	w := &Watcher{
		src:      filepath.Clean(src),
		dst:      filepath.Clean(dst),
		debounce: debounce,
		process:  process,
		fsw:      fsw,
		pending:  make(map[string]time.Time),
		log:      log,
	}
	if err := w.addTree(w.src, false); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching, it is safe to call it more than once.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run processes events until ctx is canceled, it always returns non-nil error.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	tick := time.NewTicker(max(w.debounce/5, 10*time.Millisecond))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("file system watcher closed")
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("file system watcher closed")
			}
			w.log.Warn("File system watcher error", zap.Error(err))

		case now := <-tick.C:
			w.flush(ctx, now)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if w.ignored(ev.Name) {
		return
	}

	fi, err := os.Stat(ev.Name)
	if err != nil {
		// gone already
		return
	}
	if fi.IsDir() {
		if ev.Has(fsnotify.Create) {
			// files could have been created before we started watching
			if err := w.addTree(ev.Name, true); err != nil {
				w.log.Warn("Unable to watch new directory", zap.String("dir", ev.Name), zap.Error(err))
			}
		}
		return
	}
	if fi.Mode().IsRegular() {
		w.log.Debug("File changed", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
		w.pending[ev.Name] = time.Now()
	}
}

// flush processes files which were quiet for debounce interval.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	sort.Sort(natural.StringSlice(ready))

	for _, path := range ready {
		if ctx.Err() != nil {
			return
		}
		if err := w.process(ctx, w.src, path, w.dst, w.log); err != nil {
			w.log.Warn("Unable to process changed file", zap.String("file", path), zap.Error(err))
		}
	}
}

// addTree watches dir and all directories below it. When queue is set
// existing files are scheduled for processing as well.
func (w *Watcher) addTree(dir string, queue bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if w.ignored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		switch {
		case d.IsDir():
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("unable to watch %s: %w", path, err)
			}
			w.log.Debug("Watching directory", zap.String("dir", path))
		case queue && d.Type().IsRegular():
			w.pending[path] = time.Now()
		}
		return nil
	})
}

// ignored reports paths inside destination directory nested in source.
func (w *Watcher) ignored(path string) bool {
	if w.dst == w.src {
		return false
	}
	return path == w.dst || strings.HasPrefix(path, w.dst+string(filepath.Separator))
}
