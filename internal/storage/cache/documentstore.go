// Package cache adds read-aside caching in front of a DocumentStore.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tinywideclouds/go-notification-engine/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get decodes the value into dest or returns ErrMiss.
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CachedDocumentStore caches single-document reads. Scans always go to the
// underlying store since their pages shift as documents change.
type CachedDocumentStore struct {
	realStore dispatch.DocumentStore
	cache     CacheClient
	ttl       time.Duration
	logger    *slog.Logger
}

func NewCachedDocumentStore(realStore dispatch.DocumentStore, cache CacheClient, ttl time.Duration, logger *slog.Logger) *CachedDocumentStore {
	return &CachedDocumentStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
		logger:    logger.With("component", "CachedDocumentStore"),
	}
}

// cachedDocument is the JSON form stored in Redis. Values come back with
// JSON types, so numbers are float64 and timestamps strings.
type cachedDocument struct {
	ID   string         `json:"id"`
	Path string         `json:"path"`
	Data map[string]any `json:"data"`
}

func (s *CachedDocumentStore) Get(ctx context.Context, path string) (*dispatch.Document, error) {
	key := CacheKey(path)

	var cached cachedDocument
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return &dispatch.Document{ID: cached.ID, Path: cached.Path, Data: cached.Data}, nil
	}
	if !errors.Is(err, ErrMiss) {
		s.logger.Warn("Cache read failed, falling back to store", "key", key, "err", err)
	}

	doc, err := s.realStore.Get(ctx, path)
	if err != nil || doc == nil {
		return doc, err
	}

	// Caching is an optimisation; a Redis outage only costs a store read.
	if err := s.cache.Set(ctx, key, cachedDocument{ID: doc.ID, Path: doc.Path, Data: doc.Data}, s.ttl); err != nil {
		s.logger.Warn("Cache write failed", "key", key, "err", err)
	}
	return doc, nil
}

func (s *CachedDocumentStore) Scan(ctx context.Context, collectionPath string, filters []notify.Condition, pageSize int, cursor string) (dispatch.Page, error) {
	return s.realStore.Scan(ctx, collectionPath, filters, pageSize, cursor)
}

func CacheKey(path string) string {
	return "notify:doc:" + strings.Trim(path, "/")
}
