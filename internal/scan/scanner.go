// Package scan walks a document collection page by page using a document ID
// cursor.
package scan

import (
	"context"
	"fmt"
	"iter"

	"github.com/tinywideclouds/go-notification-engine/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

// Scanner iterates one collection. A Scanner is single use: once Pages or
// Documents has been ranged over, create a new Scanner to start again.
type Scanner struct {
	store    dispatch.DocumentStore
	path     string
	filters  []notify.Condition
	pageSize int

	cursor string
	done   bool
}

// New creates a scanner. A non-positive pageSize falls back to
// notify.DefaultPageSize.
func New(store dispatch.DocumentStore, collectionPath string, filters []notify.Condition, pageSize int) *Scanner {
	if pageSize <= 0 {
		pageSize = notify.DefaultPageSize
	}
	return &Scanner{
		store:    store,
		path:     collectionPath,
		filters:  filters,
		pageSize: pageSize,
	}
}

// Pages yields each page as it is fetched. A full page means another request
// follows; a short or empty page ends the scan. A store error is yielded once
// and ends the scan.
func (s *Scanner) Pages(ctx context.Context) iter.Seq2[[]dispatch.Document, error] {
	return func(yield func([]dispatch.Document, error) bool) {
		for !s.done {
			if err := ctx.Err(); err != nil {
				s.done = true
				yield(nil, err)
				return
			}

			page, err := s.store.Scan(ctx, s.path, s.filters, s.pageSize, s.cursor)
			if err != nil {
				s.done = true
				yield(nil, fmt.Errorf("scan %s after %q: %w", s.path, s.cursor, err))
				return
			}

			docs := page.Documents
			if len(docs) < s.pageSize {
				s.done = true
			} else {
				s.cursor = docs[len(docs)-1].ID
			}

			if !yield(docs, nil) {
				return
			}
		}
	}
}

// Documents flattens Pages into single documents.
func (s *Scanner) Documents(ctx context.Context) iter.Seq2[dispatch.Document, error] {
	return func(yield func(dispatch.Document, error) bool) {
		for docs, err := range s.Pages(ctx) {
			if err != nil {
				yield(dispatch.Document{}, err)
				return
			}
			for _, doc := range docs {
				if !yield(doc, nil) {
					return
				}
			}
		}
	}
}
