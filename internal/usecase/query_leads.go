package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// ManageLeadsUseCase backs the authenticated operator routes.
type ManageLeadsUseCase struct {
	Repo   entity.LeadRepositoryInterface
	Logger *slog.Logger
	Now    func() time.Time
}

func NewManageLeadsUseCase(repo entity.LeadRepositoryInterface, logger *slog.Logger) *ManageLeadsUseCase {
	return &ManageLeadsUseCase{Repo: repo, Logger: logger, Now: time.Now}
}

// ClampLimit applies the default page size and bounds it to [1, MaxPageSize].
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	}
	return limit
}

// List pages through one conference, newest first, or through every lead
// when no conference is given.
func (uc *ManageLeadsUseCase) List(ctx context.Context, in ListLeadsInput) (*ListLeadsOutput, error) {
	req := entity.PageRequest{
		Limit:  ClampLimit(in.Limit),
		Cursor: in.Cursor,
	}

	var (
		page *entity.Page
		err  error
	)
	if conferenceID := strings.TrimSpace(in.ConferenceID); conferenceID != "" {
		page, err = uc.Repo.QueryByConference(ctx, conferenceID, req)
	} else {
		page, err = uc.Repo.ScanAll(ctx, req)
	}
	if err != nil {
		return nil, storeError(err, "Lead not found")
	}

	out := &ListLeadsOutput{Leads: page.Leads, Count: len(page.Leads)}
	if out.Leads == nil {
		out.Leads = []entity.Lead{}
	}
	if page.NextCursor != "" {
		next := page.NextCursor
		out.NextKey = &next
	}
	return out, nil
}

func (uc *ManageLeadsUseCase) Get(ctx context.Context, conferenceID, leadID string) (*entity.Lead, error) {
	if err := requireKey(conferenceID, leadID); err != nil {
		return nil, err
	}
	lead, err := uc.Repo.Get(ctx, conferenceID, leadID)
	if err != nil {
		return nil, storeError(err, "Lead not found")
	}
	return lead, nil
}

func (uc *ManageLeadsUseCase) UpdateAdmin(ctx context.Context, conferenceID, leadID string, in AdminPatchInput) (*entity.Lead, error) {
	if err := requireKey(conferenceID, leadID); err != nil {
		return nil, err
	}

	patch, err := BuildAdminPatch(in)
	if err != nil {
		return nil, err
	}

	lead, err := uc.Repo.UpdateAdmin(ctx, conferenceID, leadID, patch, uc.Now())
	if err != nil {
		return nil, storeError(err, "Lead not found")
	}

	fields := make([]string, 0, 3)
	for _, f := range patch.Fields() {
		fields = append(fields, f.String())
	}
	uc.Logger.Info("lead updated", "lead_id", leadID, "conference_id", conferenceID, "fields", fields)

	return lead, nil
}

// BuildAdminPatch turns operator input into a typed patch. Text is sanitized
// like public input.
func BuildAdminPatch(in AdminPatchInput) (entity.AdminPatch, error) {
	var patch entity.AdminPatch
	if in.Status != nil {
		status := entity.Status(strings.TrimSpace(*in.Status))
		if !status.Valid() {
			return patch, BadRequest("Invalid status: %s", *in.Status)
		}
		patch = patch.WithStatus(status)
	}
	if in.Tags != nil {
		tags := make([]string, 0, len(*in.Tags))
		for _, t := range *in.Tags {
			if s := SanitizeString(t); s != "" {
				tags = append(tags, s)
			}
		}
		patch = patch.WithTags(tags)
	}
	if in.AdminNotes != nil {
		patch = patch.WithAdminNotes(SanitizeString(*in.AdminNotes))
	}
	if patch.IsEmpty() {
		return patch, BadRequest("No valid fields to update")
	}
	return patch, nil
}

func (uc *ManageLeadsUseCase) Delete(ctx context.Context, conferenceID, leadID string) (*DeleteLeadOutput, error) {
	if err := requireKey(conferenceID, leadID); err != nil {
		return nil, err
	}
	if err := uc.Repo.Delete(ctx, conferenceID, leadID); err != nil {
		return nil, storeError(err, "Lead not found")
	}
	uc.Logger.Info("lead deleted", "lead_id", leadID, "conference_id", conferenceID)
	return &DeleteLeadOutput{Success: true, Message: "Lead deleted successfully", LeadID: leadID, ConferenceID: conferenceID}, nil
}

func requireKey(conferenceID, leadID string) error {
	if strings.TrimSpace(leadID) == "" {
		return BadRequest("leadId is required")
	}
	if strings.TrimSpace(conferenceID) == "" {
		return BadRequest("conferenceId query parameter is required")
	}
	return nil
}
