// Package cache keeps recently read conference configs in process memory.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conference_cache_hits_total",
		Help: "Conference config cache hits.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conference_cache_misses_total",
		Help: "Conference config cache misses.",
	})
)

// ConferenceCache is a size-bounded LRU whose entries expire after ttl.
// Stored values are shared; callers must not mutate them.
type ConferenceCache struct {
	lru *expirable.LRU[string, *entity.Conference]
}

func NewConferenceCache(size int, ttl time.Duration) *ConferenceCache {
	return &ConferenceCache{lru: expirable.NewLRU[string, *entity.Conference](size, nil, ttl)}
}

func (c *ConferenceCache) Get(id string) (*entity.Conference, bool) {
	v, ok := c.lru.Get(id)
	if ok {
		cacheHitsTotal.Inc()
		return v, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

func (c *ConferenceCache) Set(id string, conf *entity.Conference) {
	c.lru.Add(id, conf)
}

func (c *ConferenceCache) Delete(id string) {
	c.lru.Remove(id)
}

func (c *ConferenceCache) Len() int {
	return c.lru.Len()
}
