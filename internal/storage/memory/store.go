// Package memory is an in-process DocumentStore for local runs and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/tinywideclouds/go-notification-engine/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

// Store keeps documents keyed by their full path ("users/u1").
type Store struct {
	mu        sync.RWMutex
	docs      map[string]map[string]any
	scanCalls int
	getCalls  int
}

func NewStore() *Store {
	return &Store{docs: make(map[string]map[string]any)}
}

// Put creates or replaces the document at path.
func (s *Store) Put(path string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[strings.Trim(path, "/")] = data
}

func (s *Store) Get(_ context.Context, path string) (*dispatch.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++

	path = strings.Trim(path, "/")
	data, ok := s.docs[path]
	if !ok {
		return nil, nil
	}
	return &dispatch.Document{ID: lastSegment(path), Path: path, Data: data}, nil
}

// Scan ignores filters; the engine evaluates them on every returned document.
func (s *Store) Scan(_ context.Context, collectionPath string, _ []notify.Condition, pageSize int, cursor string) (dispatch.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanCalls++

	prefix := strings.Trim(collectionPath, "/") + "/"
	var ids []string
	for path := range s.docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, "/") {
			continue
		}
		if cursor != "" && rest <= cursor {
			continue
		}
		ids = append(ids, rest)
	}
	slices.Sort(ids)
	if pageSize > 0 && len(ids) > pageSize {
		ids = ids[:pageSize]
	}

	page := dispatch.Page{Documents: make([]dispatch.Document, 0, len(ids))}
	for _, id := range ids {
		page.Documents = append(page.Documents, dispatch.Document{
			ID:   id,
			Path: prefix + id,
			Data: s.docs[prefix+id],
		})
	}
	return page, nil
}

// ScanCalls returns how many pages have been requested.
func (s *Store) ScanCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanCalls
}

// GetCalls returns how many single-document reads have been made.
func (s *Store) GetCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCalls
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
