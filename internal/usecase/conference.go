package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

type ConferenceUseCase struct {
	Repo   entity.ConferenceRepositoryInterface
	Cache  ConferenceCache
	Logger *slog.Logger
	Now    func() time.Time
}

func NewConferenceUseCase(repo entity.ConferenceRepositoryInterface, cache ConferenceCache, logger *slog.Logger) *ConferenceUseCase {
	return &ConferenceUseCase{Repo: repo, Cache: cache, Logger: logger, Now: time.Now}
}

// GetPublic returns the form configuration. Reads go through the cache.
func (uc *ConferenceUseCase) GetPublic(ctx context.Context, id string) (*entity.PublicConference, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, BadRequest("conferenceId is required")
	}

	if uc.Cache != nil {
		if c, ok := uc.Cache.Get(id); ok {
			pub := c.Public()
			return &pub, nil
		}
	}

	c, err := uc.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, NotFound("Conference not found")
		}
		return nil, internal("failed to load conference", err)
	}
	if uc.Cache != nil {
		uc.Cache.Set(id, c)
	}
	pub := c.Public()
	return &pub, nil
}

func (uc *ConferenceUseCase) Upsert(ctx context.Context, in UpsertConferenceInput) (*ConferenceOutput, error) {
	id := SanitizeString(in.ConferenceID)
	if id == "" {
		return nil, BadRequest("conferenceId is required")
	}

	name := SanitizeString(in.Name)
	if name == "" {
		name = id
	}
	enabled := in.Enabled == nil || *in.Enabled

	now := entity.NormalizeTimestamp(uc.Now())
	saved, err := uc.Repo.Upsert(ctx, &entity.Conference{
		ConferenceID: id,
		Name:         name,
		Enabled:      enabled,
		CustomFields: in.CustomFields,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, internal("failed to save conference", err)
	}
	if uc.Cache != nil {
		uc.Cache.Delete(id)
	}

	uc.Logger.Info("conference saved", "conference_id", id, "enabled", enabled)
	return &ConferenceOutput{Success: true, Conference: saved}, nil
}
