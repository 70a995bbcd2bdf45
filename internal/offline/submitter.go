package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/xavierca1/ligue-leads/internal/client/leadapi"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type Outcome int

const (
	OutcomeSent Outcome = iota + 1
	OutcomeQueued
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeQueued:
		return "queued"
	default:
		return "unknown"
	}
}

// Connectivity reports whether the service is reachable right now.
type Connectivity interface {
	Online(ctx context.Context) bool
}

type SyncRequester interface {
	RequestSync()
}

// Replayer posts an encoded submission. *leadapi.Client implements it.
type Replayer interface {
	Replay(ctx context.Context, url string, payload []byte) (*usecase.CaptureLeadOutput, error)
}

type Submitter struct {
	Sender       Replayer
	Queue        *Queue
	Connectivity Connectivity
	Sync         SyncRequester
	URL          string
	Logger       *slog.Logger

	// Drafts, when set, has the DraftForm entry cleared after a send.
	Drafts    *Drafts
	DraftForm string
}

// Submit sends payload now or, if the network is down, parks it in the
// queue. Rejections from the service are returned and never queued.
func (s *Submitter) Submit(ctx context.Context, payload map[string]any) (Outcome, *usecase.CaptureLeadOutput, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode submission: %w", err)
	}

	out, err := s.Sender.Replay(ctx, s.URL, body)
	if err == nil {
		s.clearDraft(ctx)
		return OutcomeSent, out, nil
	}

	var apiErr *leadapi.APIError
	if errors.As(err, &apiErr) || s.Connectivity.Online(ctx) {
		return 0, nil, err
	}

	id, qerr := s.Queue.Enqueue(ctx, s.URL, body)
	if qerr != nil {
		return 0, nil, errors.Join(err, qerr)
	}
	s.Logger.Info("submission queued while offline", slog.Int64("queue_id", id), slog.String("cause", err.Error()))
	if s.Sync != nil {
		s.Sync.RequestSync()
	}
	return OutcomeQueued, nil, nil
}

func (s *Submitter) clearDraft(ctx context.Context) {
	if s.Drafts == nil || s.DraftForm == "" {
		return
	}
	if err := s.Drafts.Clear(ctx, s.DraftForm); err != nil {
		s.Logger.Warn("failed to clear draft", slog.String("form", s.DraftForm), slog.String("error", err.Error()))
	}
}

// HealthProbe checks connectivity by calling the service health endpoint.
// Any HTTP answer counts as online; only transport failures mean offline.
type HealthProbe struct {
	URL    string
	Client *http.Client
}

func NewHealthProbe(url string, timeout time.Duration) *HealthProbe {
	return &HealthProbe{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (p *HealthProbe) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, http.NoBody)
	if err != nil {
		return false
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
