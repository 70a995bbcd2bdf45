package offline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type DrainResult struct {
	Sent      int
	Failed    int
	Remaining int
	// Coalesced is set when another drain was already running; that drain
	// makes one more pass on our behalf.
	Coalesced bool
}

// Syncer replays the queue. Drains never overlap.
type Syncer struct {
	queue  *Queue
	sender Replayer
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	again   bool

	trigger chan struct{}
}

func NewSyncer(queue *Queue, sender Replayer, logger *slog.Logger) *Syncer {
	return &Syncer{
		queue:   queue,
		sender:  sender,
		logger:  logger,
		trigger: make(chan struct{}, 1),
	}
}

// RequestSync asks Run for a drain. Never blocks; repeated requests collapse.
func (s *Syncer) RequestSync() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run drains whenever events reports the network came back or a sync is
// requested. It returns when ctx is done or events is closed.
func (s *Syncer) Run(ctx context.Context, events <-chan bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case online, ok := <-events:
			if !ok {
				return nil
			}
			if !online {
				continue
			}
		case <-s.trigger:
		}

		if _, err := s.Drain(ctx); err != nil {
			s.logger.Error("queue drain failed", slog.String("error", err.Error()))
		}
	}
}

// Drain replays every pending entry once. Each entry is independent: a 2xx
// removes it, anything else leaves it for the next drain.
func (s *Syncer) Drain(ctx context.Context) (DrainResult, error) {
	s.mu.Lock()
	if s.running {
		s.again = true
		s.mu.Unlock()
		return DrainResult{Coalesced: true}, nil
	}
	s.running = true
	s.mu.Unlock()

	var total DrainResult
	for {
		res, err := s.drainOnce(ctx)
		total.Sent += res.Sent
		total.Failed = res.Failed
		total.Remaining = res.Remaining

		s.mu.Lock()
		if err != nil || !s.again || ctx.Err() != nil {
			s.running = false
			s.again = false
			s.mu.Unlock()
			return total, err
		}
		s.again = false
		s.mu.Unlock()
	}
}

func (s *Syncer) drainOnce(ctx context.Context) (DrainResult, error) {
	var res DrainResult

	pending, err := s.queue.Pending(ctx)
	if err != nil {
		return res, fmt.Errorf("read queue: %w", err)
	}

	for _, item := range pending {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.sender.Replay(ctx, item.URL, item.Payload); err != nil {
			res.Failed++
			s.logger.Warn("replay failed, entry kept",
				slog.Int64("queue_id", item.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := s.queue.Remove(ctx, item.ID); err != nil {
			// sent but still queued; it will be replayed again
			res.Failed++
			s.logger.Error("failed to remove replayed entry", slog.Int64("queue_id", item.ID), slog.String("error", err.Error()))
			continue
		}
		res.Sent++
	}

	res.Remaining, err = s.queue.Len(ctx)
	if err != nil {
		return res, fmt.Errorf("count queue: %w", err)
	}
	if res.Sent > 0 || res.Failed > 0 {
		s.logger.Info("queue drained", slog.Int("sent", res.Sent), slog.Int("failed", res.Failed), slog.Int("remaining", res.Remaining))
	}
	return res, nil
}
