// Package resolver turns a notification target into delivery endpoints.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tinywideclouds/go-notification-engine/internal/condition"
	"github.com/tinywideclouds/go-notification-engine/internal/fieldpath"
	"github.com/tinywideclouds/go-notification-engine/internal/scan"
	"github.com/tinywideclouds/go-notification-engine/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

// Resolution is one unit of resolved endpoints handed to a Sink. Token and
// document targets produce one Resolution, collection targets one per
// scanned page.
type Resolution struct {
	Tokens []string
	Topic  string

	// Page is the zero-based page index for collection targets.
	Page int
	// Scanned counts documents read, Matched the ones that passed the filters
	// and carried a token value.
	Scanned int
	Matched int
}

// Sink consumes resolutions in order. Returning an error stops resolution.
type Sink func(ctx context.Context, res Resolution) error

// Options configure a Resolver.
type Options struct {
	// PageSize is the scan page size, capped at notify.DefaultPageSize.
	PageSize int
	Logger   *slog.Logger
	// TraceLevel is the level used for per-document tracing.
	TraceLevel slog.Level
}

// Resolver is request scoped: its deduplication set lives for a single
// Resolve call.
type Resolver struct {
	store      dispatch.DocumentStore
	pageSize   int
	logger     *slog.Logger
	traceLevel slog.Level
}

func New(store dispatch.DocumentStore, opts Options) *Resolver {
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > notify.DefaultPageSize {
		pageSize = notify.DefaultPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:      store,
		pageSize:   pageSize,
		logger:     logger.With("component", "TargetResolver"),
		traceLevel: opts.TraceLevel,
	}
}

// Resolve classifies target and feeds its endpoints to sink.
func (r *Resolver) Resolve(ctx context.Context, target notify.Target, sink Sink) error {
	switch t := target.(type) {
	case notify.TokenTarget:
		tokens := newTokenSet().addAll(nil, t.Tokens.Tokens()...)
		return sink(ctx, Resolution{Tokens: tokens})
	case notify.TopicTarget:
		return sink(ctx, Resolution{Topic: t.Topic})
	case notify.CollectionTarget:
		return r.resolveCollection(ctx, t, sink)
	case notify.DocumentTarget:
		return r.resolveDocument(ctx, t, sink)
	case nil:
		return notify.NewValidationError("target", "missing")
	default:
		return fmt.Errorf("unsupported target type %T", target)
	}
}

// resolveCollection runs one sink call per scanned page so progress is
// delivered while the scan continues. A scan error ends the walk; pages
// already delivered stay delivered.
func (r *Resolver) resolveCollection(ctx context.Context, t notify.CollectionTarget, sink Sink) error {
	logger := r.logger.With("collection", t.Path, "token_field", t.TokenField)
	seen := newTokenSet()
	scanner := scan.New(r.store, t.Path, t.Filters, r.pageSize)

	page := 0
	for docs, err := range scanner.Pages(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("Collection scan failed; stopping", "page", page, "err", err)
			return nil
		}

		res := Resolution{Page: page, Scanned: len(docs)}
		var pageTokens []string
		for _, doc := range docs {
			tokens, ok := r.extract(ctx, logger, doc, t.Filters, t.TokenField)
			if !ok {
				continue
			}
			res.Matched++
			pageTokens = seen.addAll(pageTokens, tokens...)
		}
		res.Tokens = pageTokens

		logger.Log(ctx, r.traceLevel, "Collection page resolved",
			"page", page, "scanned", res.Scanned, "matched", res.Matched, "tokens", len(res.Tokens))
		if err := sink(ctx, res); err != nil {
			return err
		}
		page++
	}
	return nil
}

func (r *Resolver) resolveDocument(ctx context.Context, t notify.DocumentTarget, sink Sink) error {
	logger := r.logger.With("document", t.Path, "token_field", t.TokenField)

	doc, err := r.store.Get(ctx, t.Path)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("Document read failed; resolving to no tokens", "err", err)
		return sink(ctx, Resolution{})
	case doc == nil:
		logger.Warn("Document not found; resolving to no tokens")
		return sink(ctx, Resolution{})
	}

	res := Resolution{Scanned: 1}
	if tokens, ok := r.extract(ctx, logger, *doc, t.Filters, t.TokenField); ok {
		res.Matched = 1
		res.Tokens = newTokenSet().addAll(nil, tokens...)
	}
	return sink(ctx, res)
}

// extract applies filters to doc and reads its tokens. It reports false when
// the document is filtered out or carries no usable token value.
func (r *Resolver) extract(ctx context.Context, logger *slog.Logger, doc dispatch.Document, filters []notify.Condition, field string) ([]string, bool) {
	if !condition.Matches(doc.Data, filters) {
		logger.Log(ctx, r.traceLevel, "Document filtered out", "doc", doc.Path)
		return nil, false
	}
	raw, ok := fieldpath.Get(doc.Data, field)
	if !ok || raw == nil {
		logger.Log(ctx, r.traceLevel, "Document has no token field", "doc", doc.Path)
		return nil, false
	}
	value, ok := notify.TokenValueOf(raw)
	if !ok {
		logger.Warn("Token field has an unsupported shape", "doc", doc.Path, "type", fmt.Sprintf("%T", raw))
		return nil, false
	}
	return value.Tokens(), true
}

// tokenSet deduplicates tokens while keeping first-seen order.
type tokenSet map[string]struct{}

func newTokenSet() tokenSet {
	return make(tokenSet)
}

// addAll appends the tokens of add not seen before to dst.
func (s tokenSet) addAll(dst []string, add ...string) []string {
	for _, t := range add {
		if _, dup := s[t]; dup {
			continue
		}
		s[t] = struct{}{}
		dst = append(dst, t)
	}
	return dst
}
