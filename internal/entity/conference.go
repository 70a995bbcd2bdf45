package entity

import (
	"context"
	"time"
)

type Conference struct {
	ConferenceID string         `json:"conferenceId"`
	Name         string         `json:"name"`
	Enabled      bool           `json:"enabled"`
	CustomFields map[string]any `json:"customFields"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// PublicConference is what the public form is allowed to see.
type PublicConference struct {
	ConferenceID string         `json:"conferenceId"`
	Name         string         `json:"name"`
	Enabled      bool           `json:"enabled"`
	CustomFields map[string]any `json:"customFields"`
}

func (c *Conference) Public() PublicConference {
	fields := c.CustomFields
	if fields == nil {
		fields = map[string]any{}
	}
	return PublicConference{
		ConferenceID: c.ConferenceID,
		Name:         c.Name,
		Enabled:      c.Enabled,
		CustomFields: fields,
	}
}

type ConferenceRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*Conference, error)
	// Upsert writes the conference, keeping CreatedAt of an existing row.
	Upsert(ctx context.Context, c *Conference) (*Conference, error)
}
