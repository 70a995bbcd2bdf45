package worker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/xavierca1/ligue-leads/internal/infra/blob"
)

const exportPrefix = "exports/"

type objectLister interface {
	List(prefix string) ([]blob.ObjectInfo, error)
	Delete(key string) error
}

// ExportSweeper removes export artifacts older than the retention window.
// Download links expire long before that; the sweep only reclaims disk.
type ExportSweeper struct {
	store        objectLister
	retention    time.Duration
	tickInterval time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

func NewExportSweeper(store objectLister, retention time.Duration, logger *slog.Logger) *ExportSweeper {
	return &ExportSweeper{
		store:        store,
		retention:    retention,
		tickInterval: 10 * time.Minute,
		logger:       logger,
		now:          time.Now,
	}
}

func (w *ExportSweeper) Start(ctx context.Context) {
	w.logger.Info("export sweeper started", "retention", w.retention.String())

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.sweep()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("export sweeper stopped")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep returns how many artifacts were deleted.
func (w *ExportSweeper) sweep() int {
	objects, err := w.store.List(exportPrefix)
	if err != nil {
		w.logger.Error("failed to list exports", "error", err)
		return 0
	}

	cutoff := w.now().Add(-w.retention)
	deleted := 0
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, exportPrefix) || !obj.CreatedAt.Before(cutoff) {
			continue
		}
		if err := w.store.Delete(obj.Key); err != nil {
			w.logger.Warn("failed to delete export", "key", obj.Key, "error", err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		w.logger.Info("expired exports deleted", "count", deleted)
	}
	return deleted
}
