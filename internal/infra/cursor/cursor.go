// Package cursor encodes the continuation position of a lead listing as an
// opaque token. Only store implementations should use it; callers pass the
// token back unchanged.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const currentVersion = 1

// Position is the last key returned on a page.
type Position struct {
	Version      int       `json:"v"`
	ConferenceID string    `json:"conferenceId"`
	LeadID       string    `json:"leadId"`
	CreatedAt    time.Time `json:"createdAt"`
}

func After(l *entity.Lead) Position {
	return Position{
		Version:      currentVersion,
		ConferenceID: l.ConferenceID,
		LeadID:       l.LeadID,
		CreatedAt:    l.CreatedAt.UTC(),
	}
}

func Encode(p Position) string {
	p.Version = currentVersion
	raw, _ := json.Marshal(p)
	return base64.URLEncoding.EncodeToString(raw)
}

// Decode returns nil for an empty token.
func Decode(token string) (*Position, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		// tolerate tokens that went through a std-encoding client
		raw, err = base64.StdEncoding.DecodeString(token)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrInvalidCursor, err)
		}
	}
	var p Position
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidCursor, err)
	}
	if p.Version != currentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", entity.ErrInvalidCursor, p.Version)
	}
	if p.LeadID == "" || p.ConferenceID == "" {
		return nil, fmt.Errorf("%w: missing key", entity.ErrInvalidCursor)
	}
	return &p, nil
}
