package entity

import (
	"context"
	"encoding/json"
	"time"
)

// TimestampLayout renders lead timestamps with a fixed width so that string
// comparison follows chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

type Status string

const (
	StatusNew          Status = "new"
	StatusContacted    Status = "contacted"
	StatusQualified    Status = "qualified"
	StatusDisqualified Status = "disqualified"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusDisqualified:
		return true
	}
	return false
}

type Lead struct {
	LeadID       string `json:"leadId"`
	ConferenceID string `json:"conferenceId"`

	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Role      string `json:"role"`

	BusinessType string   `json:"businessType"`
	Interests    []string `json:"interests"`
	TripWindow   string   `json:"tripWindow"`
	GroupSize    int      `json:"groupSize"`
	Notes        string   `json:"notes"`

	ConsentContact   bool `json:"consentContact"`
	ConsentMarketing bool `json:"consentMarketing"`

	UTMSource   string `json:"utmSource"`
	UTMMedium   string `json:"utmMedium"`
	UTMCampaign string `json:"utmCampaign"`
	UserAgent   string `json:"userAgent"`
	SourceIP    string `json:"sourceIp"`

	Status     Status   `json:"status"`
	Tags       []string `json:"tags"`
	AdminNotes string   `json:"adminNotes"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarshalJSON renders timestamps with TimestampLayout and never emits null lists.
func (l Lead) MarshalJSON() ([]byte, error) {
	type alias Lead
	a := alias(l)
	if a.Interests == nil {
		a.Interests = []string{}
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return json.Marshal(struct {
		alias
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
	}{
		alias:     a,
		CreatedAt: FormatTimestamp(l.CreatedAt),
		UpdatedAt: FormatTimestamp(l.UpdatedAt),
	})
}

// Key returns the primary key of the lead.
func (l *Lead) Key() LeadKey {
	return LeadKey{ConferenceID: l.ConferenceID, LeadID: l.LeadID}
}

type LeadKey struct {
	ConferenceID string
	LeadID       string
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NormalizeTimestamp truncates to the precision every store keeps.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

type PageRequest struct {
	Limit     int
	Cursor    string
	Ascending bool
}

type Page struct {
	Leads      []Lead
	NextCursor string
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	Get(ctx context.Context, conferenceID, leadID string) (*Lead, error)
	QueryByConference(ctx context.Context, conferenceID string, req PageRequest) (*Page, error)
	ScanAll(ctx context.Context, req PageRequest) (*Page, error)
	UpdateAdmin(ctx context.Context, conferenceID, leadID string, patch AdminPatch, now time.Time) (*Lead, error)
	Delete(ctx context.Context, conferenceID, leadID string) error
}
