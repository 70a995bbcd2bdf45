package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// ArchiveDocument is the immutable record written for every accepted lead.
type ArchiveDocument struct {
	Lead     entity.Lead    `json:"lead"`
	RawInput map[string]any `json:"rawInput"`
}

// ArchiveKey places the document under raw/YYYY/MM/DD/<conference>/<lead>.json.
func ArchiveKey(l *entity.Lead) string {
	t := l.CreatedAt.UTC()
	return fmt.Sprintf("raw/%04d/%02d/%02d/%s/%s.json", t.Year(), t.Month(), t.Day(), l.ConferenceID, l.LeadID)
}

// NewLeadID returns a ULID: sortable by creation time, unique without coordination.
func NewLeadID() string {
	return ulid.Make().String()
}

type CaptureLeadUseCase struct {
	Repo     entity.LeadRepositoryInterface
	Archiver Archiver
	Logger   *slog.Logger

	// OnArchiveFailure is called after a failed archive attempt.
	OnArchiveFailure func(err error)

	Now   func() time.Time
	NewID func() string
}

func NewCaptureLeadUseCase(repo entity.LeadRepositoryInterface, archiver Archiver, logger *slog.Logger) *CaptureLeadUseCase {
	return &CaptureLeadUseCase{
		Repo:     repo,
		Archiver: archiver,
		Logger:   logger,
		Now:      time.Now,
		NewID:    NewLeadID,
	}
}

func (uc *CaptureLeadUseCase) Execute(ctx context.Context, raw map[string]any, meta RequestMetadata) (*CaptureLeadOutput, error) {
	if raw == nil {
		return nil, BadRequest("Request body is required")
	}

	sub, err := ValidateSubmission(raw)
	if err != nil {
		if IsSpam(raw) {
			uc.Logger.Warn("spam submission rejected", "source_ip", meta.SourceIP)
		}
		return nil, err
	}

	now := entity.NormalizeTimestamp(uc.Now())
	lead := &entity.Lead{
		LeadID:           uc.NewID(),
		ConferenceID:     sub.ConferenceID,
		FirstName:        sub.FirstName,
		LastName:         sub.LastName,
		Email:            sub.Email,
		Phone:            sub.Phone,
		Company:          sub.Company,
		Role:             sub.Role,
		BusinessType:     sub.BusinessType,
		Interests:        sub.Interests,
		TripWindow:       sub.TripWindow,
		GroupSize:        sub.GroupSize,
		Notes:            sub.Notes,
		ConsentContact:   true,
		ConsentMarketing: sub.ConsentMarketing,
		UTMSource:        sub.UTMSource,
		UTMMedium:        sub.UTMMedium,
		UTMCampaign:      sub.UTMCampaign,
		UserAgent:        truncate(meta.UserAgent, maxFieldLength),
		SourceIP:         meta.SourceIP,
		Status:           entity.StatusNew,
		Tags:             []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.Repo.Create(ctx, lead); err != nil {
		if errors.Is(err, entity.ErrConflict) {
			return nil, internal("lead id collision", err)
		}
		return nil, internal("failed to store lead", err)
	}

	uc.archive(ctx, lead, raw)

	uc.Logger.Info("lead captured",
		"lead_id", lead.LeadID,
		"conference_id", lead.ConferenceID,
	)

	return &CaptureLeadOutput{
		Success: true,
		LeadID:  lead.LeadID,
		Message: "Lead captured successfully",
	}, nil
}

// archive never fails the capture; the lead is already durable.
func (uc *CaptureLeadUseCase) archive(ctx context.Context, lead *entity.Lead, raw map[string]any) {
	if uc.Archiver == nil {
		return
	}
	doc := ArchiveDocument{Lead: *lead, RawInput: raw}
	if err := uc.Archiver.Archive(ctx, doc); err != nil {
		uc.Logger.Error("failed to archive lead",
			"lead_id", lead.LeadID,
			"key", ArchiveKey(lead),
			"error", err,
		)
		if uc.OnArchiveFailure != nil {
			uc.OnArchiveFailure(err)
		}
	}
}
