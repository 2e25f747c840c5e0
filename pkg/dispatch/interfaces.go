// Package dispatch defines the collaborators the engine reads targets from
// and delivers notifications through.
package dispatch

import (
	"context"

	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

// Document is a single stored record. Path is the full document path and ID
// its last segment, which is also the pagination cursor.
type Document struct {
	ID   string
	Path string
	Data map[string]any
}

// Page is one slice of a collection scan.
type Page struct {
	Documents []Document
}

// DocumentStore reads documents that targets point at.
type DocumentStore interface {
	// Get loads a single document. It returns (nil, nil) when the document
	// does not exist.
	Get(ctx context.Context, path string) (*Document, error)

	// Scan returns up to pageSize documents of the collection ordered by
	// document ID, starting after cursor (empty for the first page).
	// Stores may apply filters they can push down; callers still evaluate
	// every filter on the returned documents.
	Scan(ctx context.Context, collectionPath string, filters []notify.Condition, pageSize int, cursor string) (Page, error)
}

// PushProvider delivers a payload to devices.
type PushProvider interface {
	// SendMulticast sends to at most notify.MaxBatchSize tokens and returns the
	// provider's message identifier. With dryRun set the provider validates
	// the message without delivering it.
	SendMulticast(ctx context.Context, payload notify.Payload, tokens []string, dryRun bool) (string, error)

	// SendToTopic sends to every subscriber of topic.
	SendToTopic(ctx context.Context, payload notify.Payload, topic string, dryRun bool) (string, error)
}
