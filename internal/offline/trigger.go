package offline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// TriggerFile asks something outside the process to run a drain by
// rewriting Path. WatchTrigger (used by `leadsync drain -watch`) or a
// systemd path unit with PathModified= can pick it up.
type TriggerFile struct {
	Path   string
	Logger *slog.Logger
}

func (t TriggerFile) RequestSync() {
	if err := t.touch(time.Now()); err != nil {
		t.Logger.Warn("could not request sync", slog.String("path", t.Path), slog.String("error", err.Error()))
	}
}

func (t TriggerFile) touch(now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(t.Path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(t.Path, []byte(now.UTC().Format(time.RFC3339Nano)+"\n"), 0o644)
}

// WatchTrigger forwards every write to path as a sync request until ctx is
// done. The parent directory is watched so the file may not exist yet.
func WatchTrigger(ctx context.Context, path string, requester SyncRequester, logger *slog.Logger) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("trigger watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			logger.Debug("sync requested through trigger file", slog.String("path", path))
			requester.RequestSync()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("trigger watcher error", slog.String("error", err.Error()))
		}
	}
}
