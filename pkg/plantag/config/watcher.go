package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cognicore/plantag/pkg/plantag/registry"
)

// DefaultDebounce batches the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a registry holder whenever one of the loader's files
// changes. A failed reload keeps the previous snapshot in place.
type Watcher struct {
	loader   *Loader
	holder   *registry.Holder
	log      *zap.Logger
	debounce time.Duration
	watched  map[string]bool

	// OnReload, when set, observes every reload attempt.
	OnReload func(*registry.Snapshot, error)
}

// NewWatcher creates a watcher. It does not touch the filesystem until Run.
func NewWatcher(loader *Loader, holder *registry.Holder, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watcher{
		loader:   loader,
		holder:   holder,
		log:      log.Named("config.watch"),
		debounce: DefaultDebounce,
		watched:  make(map[string]bool),
	}
	for _, p := range loader.Paths() {
		w.watched[filepath.Clean(p)] = true
	}
	return w
}

// SetDebounce overrides DefaultDebounce.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Run watches until ctx is cancelled. Directories are watched rather than
// files so that editors replacing a file by rename are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	if len(w.watched) == 0 {
		return fmt.Errorf("config watcher: no files to watch")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dirs := make(map[string]bool)
	for p := range w.watched {
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
		w.log.Info("watching registry directory", zap.String("dir", dir))
	}

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("registry file changed", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-timer.C:
			w.reload(ctx)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	return w.watched[filepath.Clean(ev.Name)]
}

func (w *Watcher) reload(ctx context.Context) {
	snap, err := w.holder.Reload(ctx, w.loader)
	if err != nil {
		w.log.Error("registry reload failed, keeping previous snapshot", zap.Error(err))
	} else {
		w.log.Info("registry reloaded", zap.String("version", snap.Version))
	}
	if w.OnReload != nil {
		w.OnReload(snap, err)
	}
}
