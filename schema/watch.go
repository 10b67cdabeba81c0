package schema

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads r from path each time the file is written or replaced, until
// ctx is done. The containing directory is watched so that editors saving
// through a rename are seen too. A document that fails to load is logged and
// the previous families stay in place.
func Watch(ctx context.Context, path string, r *Registry, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("relmap/schema: watch: %w", err)
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("relmap/schema: watch %s: %w", path, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := r.LoadFile(path); err != nil {
				log.Warn("relationship schema reload failed", "path", path, "error", err)
				continue
			}
			log.Info("relationship schema reloaded", "path", path, "families", len(r.Names()))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("relationship schema watch error", "path", path, "error", err)
		}
	}
}
