package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectStore is where exports and raw archives land.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, opts PutOptions) error
}

// LinkSigner issues time-limited download links for stored objects.
type LinkSigner interface {
	SignURL(key string, ttl time.Duration) (string, error)
}

// Archiver keeps an immutable copy of every accepted submission.
type Archiver interface {
	Archive(ctx context.Context, doc ArchiveDocument) error
}

type ConferenceCache interface {
	Get(id string) (*entity.Conference, bool)
	Set(id string, c *entity.Conference)
	Delete(id string)
}

type RequestMetadata struct {
	SourceIP  string
	UserAgent string
}

type CaptureLeadOutput struct {
	Success bool   `json:"success"`
	LeadID  string `json:"leadId"`
	Message string `json:"message"`
}

type ListLeadsInput struct {
	ConferenceID string
	Limit        int
	Cursor       string
}

type ListLeadsOutput struct {
	Leads   []entity.Lead `json:"leads"`
	NextKey *string       `json:"nextKey"`
	Count   int           `json:"count"`
}

// AdminPatchInput is the operator's update request; unknown fields are
// dropped by the decoder before they get here.
type AdminPatchInput struct {
	Status     *string   `json:"status"`
	Tags       *[]string `json:"tags"`
	AdminNotes *string   `json:"adminNotes"`
}

type DeleteLeadOutput struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	LeadID       string `json:"leadId"`
	ConferenceID string `json:"conferenceId"`
}

type ExportFilters struct {
	ConferenceID     string   `json:"conferenceId"`
	Status           string   `json:"status"`
	BusinessType     string   `json:"businessType"`
	HasNotes         bool     `json:"hasNotes"`
	ConsentMarketing *bool    `json:"consentMarketing"`
	DateFrom         string   `json:"dateFrom"`
	DateTo           string   `json:"dateTo"`
	Tags             []string `json:"tags"`
}

type ExportInput struct {
	Format  string        `json:"format"`
	Filters ExportFilters `json:"filters"`
}

type ExportOutput struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	Count       int    `json:"count"`
	ExpiresIn   int    `json:"expiresIn,omitempty"`
}

type UpsertConferenceInput struct {
	ConferenceID string         `json:"conferenceId"`
	Name         string         `json:"name"`
	Enabled      *bool          `json:"enabled"`
	CustomFields map[string]any `json:"customFields"`
}

type ConferenceOutput struct {
	Success    bool               `json:"success"`
	Conference *entity.Conference `json:"conference"`
}
