package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

type ConferenceRepo struct {
	mu          sync.RWMutex
	conferences map[string]entity.Conference
}

func NewConferenceRepo() *ConferenceRepo {
	return &ConferenceRepo{conferences: make(map[string]entity.Conference)}
}

func (r *ConferenceRepo) FindByID(_ context.Context, id string) (*entity.Conference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conferences[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	c.CustomFields = maps.Clone(c.CustomFields)
	return &c, nil
}

func (r *ConferenceRepo) Upsert(_ context.Context, c *entity.Conference) (*entity.Conference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *c
	stored.CustomFields = maps.Clone(c.CustomFields)
	if existing, ok := r.conferences[c.ConferenceID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	r.conferences[c.ConferenceID] = stored

	out := stored
	out.CustomFields = maps.Clone(stored.CustomFields)
	return &out, nil
}
