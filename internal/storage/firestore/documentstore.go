// Package firestore reads notification targets out of Cloud Firestore.
package firestore

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tinywideclouds/go-notification-engine/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

// DocumentStore implements dispatch.DocumentStore using Google Cloud Firestore.
type DocumentStore struct {
	client *firestore.Client
}

func NewDocumentStore(client *firestore.Client) *DocumentStore {
	return &DocumentStore{client: client}
}

func (s *DocumentStore) Get(ctx context.Context, path string) (*dispatch.Document, error) {
	ref := s.client.Doc(strings.Trim(path, "/"))
	if ref == nil {
		return nil, fmt.Errorf("invalid document path %q", path)
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore get %s failed: %w", path, err)
	}
	return toDocument(snap), nil
}

// Scan orders by document ID so the last ID of a page is a stable cursor.
// Equality filters on top-level fields are pushed down to the query.
func (s *DocumentStore) Scan(
	ctx context.Context,
	collectionPath string,
	filters []notify.Condition,
	pageSize int,
	cursor string,
) (dispatch.Page, error) {
	col := s.client.Collection(strings.Trim(collectionPath, "/"))
	if col == nil {
		return dispatch.Page{}, fmt.Errorf("invalid collection path %q", collectionPath)
	}

	q := col.Query
	for _, c := range filters {
		if pushable(c) {
			q = q.WherePath(firestore.FieldPath{c.Key}, "==", c.Value)
		}
	}
	q = q.OrderBy(firestore.DocumentID, firestore.Asc)
	if cursor != "" {
		q = q.StartAfter(cursor)
	}
	if pageSize > 0 {
		q = q.Limit(pageSize)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	page := dispatch.Page{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return dispatch.Page{}, fmt.Errorf("firestore iteration failed: %w", err)
		}
		page.Documents = append(page.Documents, *toDocument(snap))
	}
	return page, nil
}

// pushable reports whether Firestore evaluates c exactly as the in-memory
// evaluator does. isNull is not, since Firestore never matches absent fields.
// Dotted keys stay in memory: a document may hold "a.b" verbatim, which the
// evaluator prefers over the nested field Firestore would read.
func pushable(c notify.Condition) bool {
	if c.Op != notify.OpEquals || c.Key == "" || strings.ContainsAny(c.Key, ".[]") {
		return false
	}
	switch c.Value.(type) {
	case string, bool, float64, int, int64:
		return true
	}
	return false
}

func toDocument(snap *firestore.DocumentSnapshot) *dispatch.Document {
	return &dispatch.Document{
		ID:   snap.Ref.ID,
		Path: relativePath(snap.Ref.Path),
		Data: snap.Data(),
	}
}

// relativePath strips "projects/p/databases/d/documents/" from a full
// resource name.
func relativePath(full string) string {
	const marker = "/documents/"
	if i := strings.Index(full, marker); i >= 0 {
		return full[i+len(marker):]
	}
	return full
}
