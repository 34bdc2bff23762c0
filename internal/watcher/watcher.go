// Package watcher imports calendar exports dropped into a directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/deepak-highbeam/calsift/internal/log"
	"github.com/deepak-highbeam/calsift/internal/pipeline"
)

// DefaultDebounce is the quiet window before a changed file is imported.
const DefaultDebounce = 500 * time.Millisecond

// Loader imports files into the working set. *pipeline.Controller
// implements it.
type Loader interface {
	LoadFiles(ctx context.Context, paths []string) ([]pipeline.LoadedFile, error)
	Known(path string) (bool, error)
}

// Options configure a Watcher.
type Options struct {
	Dir            string
	IgnorePatterns []string

	// Rescan is a cron spec for periodic full rescans. Empty disables them.
	Rescan   string
	Location *time.Location

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// OnLoad, if set, is called after every import that loaded files.
	OnLoad func([]pipeline.LoadedFile)
}

// Watcher feeds new and modified .csv/.ics files under a directory to a
// Loader.
type Watcher struct {
	loader Loader
	opts   Options
	filter *Filter

	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	sched     *cron.Cron
	ready     chan struct{}

	// importMu serializes imports from fsnotify and the rescan schedule.
	importMu sync.Mutex
}

// New creates a Watcher. Call Start to begin watching.
func New(loader Loader, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Watcher{
		loader: loader,
		opts:   opts,
		filter: NewFilter(opts.IgnorePatterns),
		ready:  make(chan struct{}),
	}
}

// Ready is closed once Start has registered the directory and finished the
// initial scan.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Start imports files not seen before, then watches the directory until
// ctx is cancelled. Call Stop afterwards to flush pending imports.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("create import dir: %w", err)
	}

	var sched *cron.Cron
	if w.opts.Rescan != "" {
		sched = cron.New(
			cron.WithLocation(w.opts.Location),
			cron.WithLogger(cronLogger{}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
		)
		if _, err := sched.AddFunc(w.opts.Rescan, func() { w.rescan(ctx) }); err != nil {
			return fmt.Errorf("parse rescan schedule %q: %w", w.opts.Rescan, err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	// Imports run to completion even when ctx ends mid-load so that Stop
	// can flush what is pending.
	loadCtx := context.WithoutCancel(ctx)
	w.debouncer = NewDebouncer(w.opts.Debounce, func(e Event) { w.handle(loadCtx, e) })

	if err := w.addRecursive(w.opts.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.opts.Dir, err)
	}

	w.rescan(ctx)
	if sched != nil {
		w.sched = sched
		sched.Start()
	}
	log.Info("watching import dir", "dir", w.opts.Dir, "rescan", w.opts.Rescan)
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("fsnotify error", "err", err)
		}
	}
}

// Stop halts rescans, imports pending debounced files and closes the
// fsnotify watcher.
func (w *Watcher) Stop() {
	if w.sched != nil {
		<-w.sched.Stop().Done()
	}
	if w.debouncer != nil {
		w.debouncer.Stop()
	}
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
}

// Rescan imports every accepted file under the directory whose current
// version has not been loaded yet. It returns the number of files loaded.
func (w *Watcher) Rescan(ctx context.Context) (int, error) {
	var paths []string
	err := filepath.WalkDir(w.opts.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != w.opts.Dir && w.filter.ShouldIgnore(w.rel(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.filter.Accept(w.rel(path)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", w.opts.Dir, err)
	}
	loaded, err := w.importFiles(ctx, paths)
	return len(loaded), err
}

func (w *Watcher) rescan(ctx context.Context) {
	n, err := w.Rescan(ctx)
	if err != nil {
		log.Warn("rescan failed", "dir", w.opts.Dir, "err", err)
		return
	}
	log.Debug("rescan done", "dir", w.opts.Dir, "loaded", n)
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel := w.rel(ev.Name)
	if w.filter.ShouldIgnore(rel) {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(ev.Name)
			return
		}
	}
	if !w.filter.Accept(rel) {
		return
	}

	op, ok := mapOp(ev.Op)
	if !ok {
		return
	}
	w.debouncer.Feed(Event{Path: ev.Name, Op: op, Time: time.Now()})
}

// handle imports a settled file. Loaded rows are never retracted, so
// removals and the old name of a rename are only logged.
func (w *Watcher) handle(ctx context.Context, e Event) {
	if e.Op == OpRemove || e.Op == OpRename {
		log.Debug("import file gone", "file", e.Path, "op", string(e.Op))
		return
	}
	if _, err := w.importFiles(ctx, []string{e.Path}); err != nil {
		log.Warn("import failed", "file", e.Path, "err", err)
	}
}

// importFiles loads the paths whose current version is unknown.
func (w *Watcher) importFiles(ctx context.Context, paths []string) ([]pipeline.LoadedFile, error) {
	w.importMu.Lock()
	defer w.importMu.Unlock()

	var fresh []string
	for _, p := range paths {
		known, err := w.loader.Known(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", p, err)
		}
		if !known {
			fresh = append(fresh, p)
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	loaded, err := w.loader.LoadFiles(ctx, fresh)
	if len(loaded) > 0 && w.opts.OnLoad != nil {
		w.opts.OnLoad(loaded)
	}
	return loaded, err
}

// addRecursive registers root and every directory below it that is not
// ignored.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.filter.ShouldIgnore(w.rel(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			log.Warn("watch dir", "dir", path, "err", err)
		}
		return nil
	})
}

// rel returns path relative to the import directory, so ignore patterns
// never match components of the directory itself.
func (w *Watcher) rel(path string) string {
	if r, err := filepath.Rel(w.opts.Dir, path); err == nil {
		return r
	}
	return path
}

// cronLogger routes scheduler messages into the package logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	log.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	log.Error("cron: "+msg, err, kv...)
}

func mapOp(op fsnotify.Op) (Op, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate, true
	case op.Has(fsnotify.Remove):
		return OpRemove, true
	case op.Has(fsnotify.Rename):
		return OpRename, true
	case op.Has(fsnotify.Write):
		return OpWrite, true
	default:
		return "", false
	}
}
