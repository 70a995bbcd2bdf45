// Package memory holds in-process repositories with the same semantics as the
// Postgres ones. Used by tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/cursor"
)

type LeadRepo struct {
	mu    sync.RWMutex
	leads map[entity.LeadKey]*entity.Lead
}

func NewLeadRepo() *LeadRepo {
	return &LeadRepo{leads: make(map[entity.LeadKey]*entity.Lead)}
}

func (r *LeadRepo) Create(_ context.Context, lead *entity.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := lead.Key()
	if _, exists := r.leads[key]; exists {
		return entity.ErrConflict
	}
	r.leads[key] = clone(lead)
	return nil
}

func (r *LeadRepo) Get(_ context.Context, conferenceID, leadID string) (*entity.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.leads[entity.LeadKey{ConferenceID: conferenceID, LeadID: leadID}]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return clone(l), nil
}

func (r *LeadRepo) QueryByConference(_ context.Context, conferenceID string, req entity.PageRequest) (*entity.Page, error) {
	pos, err := cursor.Decode(req.Cursor)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	var items []*entity.Lead
	for _, l := range r.leads {
		if l.ConferenceID == conferenceID {
			items = append(items, clone(l))
		}
	}
	r.mu.RUnlock()

	less := func(a, b *entity.Lead) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.LeadID < b.LeadID
	}
	sort.Slice(items, func(i, j int) bool {
		if req.Ascending {
			return less(items[i], items[j])
		}
		return less(items[j], items[i])
	})

	if pos != nil {
		marker := &entity.Lead{ConferenceID: pos.ConferenceID, LeadID: pos.LeadID, CreatedAt: pos.CreatedAt}
		items = dropUntil(items, func(l *entity.Lead) bool {
			if req.Ascending {
				return less(marker, l)
			}
			return less(l, marker)
		})
	}

	return page(items, req.Limit), nil
}

func (r *LeadRepo) ScanAll(_ context.Context, req entity.PageRequest) (*entity.Page, error) {
	pos, err := cursor.Decode(req.Cursor)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	items := make([]*entity.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		items = append(items, clone(l))
	}
	r.mu.RUnlock()

	less := func(a, b *entity.Lead) bool {
		if a.ConferenceID != b.ConferenceID {
			return a.ConferenceID < b.ConferenceID
		}
		return a.LeadID < b.LeadID
	}
	sort.Slice(items, func(i, j int) bool { return less(items[i], items[j]) })

	if pos != nil {
		marker := &entity.Lead{ConferenceID: pos.ConferenceID, LeadID: pos.LeadID}
		items = dropUntil(items, func(l *entity.Lead) bool { return less(marker, l) })
	}

	return page(items, req.Limit), nil
}

func (r *LeadRepo) UpdateAdmin(_ context.Context, conferenceID, leadID string, patch entity.AdminPatch, now time.Time) (*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leads[entity.LeadKey{ConferenceID: conferenceID, LeadID: leadID}]
	if !ok {
		return nil, entity.ErrNotFound
	}
	patch.Apply(l)
	l.UpdatedAt = entity.NormalizeTimestamp(now)
	return clone(l), nil
}

func (r *LeadRepo) Delete(_ context.Context, conferenceID, leadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entity.LeadKey{ConferenceID: conferenceID, LeadID: leadID}
	if _, ok := r.leads[key]; !ok {
		return entity.ErrNotFound
	}
	delete(r.leads, key)
	return nil
}

// dropUntil skips the sorted prefix that does not satisfy keep.
func dropUntil(items []*entity.Lead, keep func(*entity.Lead) bool) []*entity.Lead {
	for i, l := range items {
		if keep(l) {
			return items[i:]
		}
	}
	return nil
}

func page(items []*entity.Lead, limit int) *entity.Page {
	p := &entity.Page{Leads: []entity.Lead{}}
	if limit <= 0 {
		limit = len(items)
	}
	for i, l := range items {
		if i == limit {
			p.NextCursor = cursor.Encode(cursor.After(&p.Leads[len(p.Leads)-1]))
			break
		}
		p.Leads = append(p.Leads, *l)
	}
	return p
}

func clone(l *entity.Lead) *entity.Lead {
	cp := *l
	cp.Interests = append([]string(nil), l.Interests...)
	cp.Tags = append([]string(nil), l.Tags...)
	return &cp
}
