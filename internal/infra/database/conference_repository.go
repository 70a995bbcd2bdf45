package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

type ConferenceRepository struct {
	DB *sql.DB
}

func NewConferenceRepository(db *sql.DB) *ConferenceRepository {
	return &ConferenceRepository{DB: db}
}

func (r *ConferenceRepository) FindByID(ctx context.Context, id string) (*entity.Conference, error) {
	query := `
		SELECT conference_id, name, enabled, custom_fields, created_at, updated_at
		FROM conferences WHERE conference_id = $1
	`
	c, err := scanConference(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("find conference: %w", err)
	}
	return c, nil
}

// Upsert keeps created_at of an existing row; everything else is replaced.
func (r *ConferenceRepository) Upsert(ctx context.Context, c *entity.Conference) (*entity.Conference, error) {
	fields, err := json.Marshal(customFieldsOrEmpty(c.CustomFields))
	if err != nil {
		return nil, fmt.Errorf("encode custom fields: %w", err)
	}

	query := `
		INSERT INTO conferences (conference_id, name, enabled, custom_fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (conference_id)
		DO UPDATE SET
			name = EXCLUDED.name,
			enabled = EXCLUDED.enabled,
			custom_fields = EXCLUDED.custom_fields,
			updated_at = EXCLUDED.updated_at
		RETURNING conference_id, name, enabled, custom_fields, created_at, updated_at
	`

	out, err := scanConference(r.DB.QueryRowContext(ctx, query,
		c.ConferenceID, c.Name, c.Enabled, string(fields), c.CreatedAt, c.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert conference: %w", err)
	}
	return out, nil
}

func scanConference(row rowScanner) (*entity.Conference, error) {
	var c entity.Conference
	var fields []byte
	if err := row.Scan(&c.ConferenceID, &c.Name, &c.Enabled, &fields, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &c.CustomFields); err != nil {
			return nil, fmt.Errorf("decode custom fields: %w", err)
		}
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func customFieldsOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
