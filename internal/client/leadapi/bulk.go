package leadapi

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const (
	BulkBatchSize  = 5
	BulkBatchPause = 100 * time.Millisecond
)

type BulkFailure struct {
	Key entity.LeadKey
	Err error
}

// BulkResult aggregates a bulk operation. Nothing is retried; callers decide
// what to do with Failed.
type BulkResult struct {
	Succeeded []entity.LeadKey
	Failed    []BulkFailure
}

// BulkDelete deletes keys in batches of BulkBatchSize, running each batch
// concurrently and pausing between batches. One failure does not stop its
// siblings or later batches. Only ctx cancellation ends the run early.
func (c *Client) BulkDelete(ctx context.Context, keys []entity.LeadKey) (*BulkResult, error) {
	res := &BulkResult{}
	var mu sync.Mutex

	for start := 0; start < len(keys); start += BulkBatchSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(BulkBatchPause):
			}
		}

		end := min(start+BulkBatchSize, len(keys))
		var g errgroup.Group
		for _, key := range keys[start:end] {
			key := key
			g.Go(func() error {
				_, err := c.Delete(ctx, key.ConferenceID, key.LeadID)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					res.Failed = append(res.Failed, BulkFailure{Key: key, Err: err})
					return nil
				}
				res.Succeeded = append(res.Succeeded, key)
				return nil
			})
		}
		_ = g.Wait()
	}

	c.logger.Info("bulk delete finished",
		slog.Int("succeeded", len(res.Succeeded)),
		slog.Int("failed", len(res.Failed)),
	)
	return res, nil
}
