package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/cursor"
)

const leadColumns = `conference_id, lead_id, first_name, last_name, email, phone,
	company, role, business_type, interests, trip_window, group_size, notes,
	consent_contact, consent_marketing, utm_source, utm_medium, utm_campaign,
	user_agent, source_ip, status, tags, admin_notes, created_at, updated_at`

const uniqueViolation = "23505"

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) Create(ctx context.Context, l *entity.Lead) error {
	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`

	_, err := r.DB.ExecContext(ctx, query,
		l.ConferenceID, l.LeadID, l.FirstName, l.LastName, l.Email, l.Phone,
		l.Company, l.Role, l.BusinessType, pq.Array(nonNil(l.Interests)), l.TripWindow, l.GroupSize, l.Notes,
		l.ConsentContact, l.ConsentMarketing, l.UTMSource, l.UTMMedium, l.UTMCampaign,
		l.UserAgent, l.SourceIP, string(l.Status), pq.Array(nonNil(l.Tags)), l.AdminNotes, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return entity.ErrConflict
		}
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) Get(ctx context.Context, conferenceID, leadID string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE conference_id = $1 AND lead_id = $2`

	l, err := scanLead(r.DB.QueryRowContext(ctx, query, conferenceID, leadID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

func (r *LeadRepository) QueryByConference(ctx context.Context, conferenceID string, req entity.PageRequest) (*entity.Page, error) {
	pos, err := cursor.Decode(req.Cursor)
	if err != nil {
		return nil, err
	}

	op, dir := "<", "DESC"
	if req.Ascending {
		op, dir = ">", "ASC"
	}

	args := []any{conferenceID}
	var b strings.Builder
	b.WriteString(`SELECT ` + leadColumns + ` FROM leads WHERE conference_id = $1`)
	if pos != nil {
		fmt.Fprintf(&b, ` AND (created_at, lead_id) %s ($2, $3)`, op)
		args = append(args, pos.CreatedAt, pos.LeadID)
	}
	fmt.Fprintf(&b, ` ORDER BY created_at %s, lead_id %s`, dir, dir)

	return r.queryPage(ctx, &b, args, req.Limit)
}

func (r *LeadRepository) ScanAll(ctx context.Context, req entity.PageRequest) (*entity.Page, error) {
	pos, err := cursor.Decode(req.Cursor)
	if err != nil {
		return nil, err
	}

	var args []any
	var b strings.Builder
	b.WriteString(`SELECT ` + leadColumns + ` FROM leads`)
	if pos != nil {
		b.WriteString(` WHERE (conference_id, lead_id) > ($1, $2)`)
		args = append(args, pos.ConferenceID, pos.LeadID)
	}
	b.WriteString(` ORDER BY conference_id, lead_id`)

	return r.queryPage(ctx, &b, args, req.Limit)
}

// queryPage fetches one row past the limit to learn whether another page exists.
func (r *LeadRepository) queryPage(ctx context.Context, b *strings.Builder, args []any, limit int) (*entity.Page, error) {
	if limit > 0 {
		fmt.Fprintf(b, ` LIMIT $%d`, len(args)+1)
		args = append(args, limit+1)
	}

	rows, err := r.DB.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	page := &entity.Page{Leads: []entity.Lead{}}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		page.Leads = append(page.Leads, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}

	if limit > 0 && len(page.Leads) > limit {
		page.Leads = page.Leads[:limit]
		page.NextCursor = cursor.Encode(cursor.After(&page.Leads[limit-1]))
	}
	return page, nil
}

// UpdateAdmin leaves columns whose patch field is nil untouched.
func (r *LeadRepository) UpdateAdmin(ctx context.Context, conferenceID, leadID string, patch entity.AdminPatch, now time.Time) (*entity.Lead, error) {
	query := `
		UPDATE leads SET
			status      = COALESCE($3, status),
			tags        = COALESCE($4, tags),
			admin_notes = COALESCE($5, admin_notes),
			updated_at  = $6
		WHERE conference_id = $1 AND lead_id = $2
		RETURNING ` + leadColumns

	var status, notes sql.NullString
	var tags any
	if patch.Status != nil {
		status = sql.NullString{String: string(*patch.Status), Valid: true}
	}
	if patch.Tags != nil {
		tags = pq.Array(nonNil(*patch.Tags))
	}
	if patch.AdminNotes != nil {
		notes = sql.NullString{String: *patch.AdminNotes, Valid: true}
	}

	l, err := scanLead(r.DB.QueryRowContext(ctx, query,
		conferenceID, leadID, status, tags, notes, entity.NormalizeTimestamp(now),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("update lead: %w", err)
	}
	return l, nil
}

func (r *LeadRepository) Delete(ctx context.Context, conferenceID, leadID string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM leads WHERE conference_id = $1 AND lead_id = $2`,
		conferenceID, leadID,
	)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var l entity.Lead
	var status string
	err := row.Scan(
		&l.ConferenceID, &l.LeadID, &l.FirstName, &l.LastName, &l.Email, &l.Phone,
		&l.Company, &l.Role, &l.BusinessType, pq.Array(&l.Interests), &l.TripWindow, &l.GroupSize, &l.Notes,
		&l.ConsentContact, &l.ConsentMarketing, &l.UTMSource, &l.UTMMedium, &l.UTMCampaign,
		&l.UserAgent, &l.SourceIP, &status, pq.Array(&l.Tags), &l.AdminNotes, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Status = entity.Status(status)
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
