// Package engine validates notification requests, resolves their targets and
// hands the resulting endpoints to the batch dispatcher.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tinywideclouds/go-notification-engine/internal/batch"
	"github.com/tinywideclouds/go-notification-engine/internal/metrics"
	"github.com/tinywideclouds/go-notification-engine/internal/resolver"
	"github.com/tinywideclouds/go-notification-engine/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

// Config tunes batch and page sizes. Zero values use the provider limits.
type Config struct {
	BatchSize int
	PageSize  int
}

// Engine is safe for concurrent use; all per-request state lives in Send.
type Engine struct {
	store      dispatch.DocumentStore
	dispatcher *batch.Dispatcher
	pageSize   int
	validate   *validator.Validate
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New wires an engine. metrics may be nil.
func New(
	cfg Config,
	store dispatch.DocumentStore,
	provider dispatch.PushProvider,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Engine {
	var observer batch.Observer
	if m != nil {
		observer = m
	}
	return &Engine{
		store:      store,
		dispatcher: batch.NewDispatcher(provider, cfg.BatchSize, observer, logger),
		pageSize:   cfg.PageSize,
		validate:   validator.New(),
		metrics:    m,
		logger:     logger.With("component", "NotificationEngine"),
	}
}

// Send validates req, resolves its target and dispatches it. Any error
// returned wraps notify.ErrInvalidArgument; delivery problems are reported in
// Response.Failures instead.
func (e *Engine) Send(ctx context.Context, req *notify.Request) (*notify.Response, error) {
	target, err := e.Validate(req)
	if err != nil {
		e.record(kindOf(target), "rejected")
		return nil, err
	}
	e.record(kindOf(target), "accepted")

	logger := e.logger.With("request_id", uuid.NewString(), "target", kindOf(target))
	trace := slog.LevelDebug
	if req.ShowLog {
		trace = slog.LevelInfo
	}

	payload := req.Payload()
	tally := batch.NewTally()
	resp := &notify.Response{Success: true}

	sink := func(ctx context.Context, res resolver.Resolution) error {
		if e.metrics != nil {
			e.metrics.RecordResolution(res.Scanned, len(res.Tokens))
		}
		logger.Log(ctx, trace, "Targets resolved", "page", res.Page, "tokens", len(res.Tokens), "topic", res.Topic)
		if req.ShowLog && len(res.Tokens) > 0 {
			logger.Info("Resolved token list", "page", res.Page, "token_list", res.Tokens)
		}

		if req.ResponseTokenList {
			resp.Tokens = append(resp.Tokens, res.Tokens...)
			if res.Topic != "" {
				resp.Topic = res.Topic
			}
			return nil
		}
		if res.Topic != "" {
			e.dispatcher.SendTopic(ctx, payload, res.Topic, req.DryRun, tally)
			return nil
		}
		e.dispatcher.SendTokens(ctx, payload, res.Tokens, req.DryRun, tally)
		return nil
	}

	r := resolver.New(e.store, resolver.Options{PageSize: e.pageSize, Logger: logger, TraceLevel: trace})
	if err := r.Resolve(ctx, target, sink); err != nil {
		if errors.Is(err, notify.ErrInvalidArgument) {
			return nil, err
		}
		// Cancellation mid-resolution; what was delivered stays in the tally.
		logger.Warn("Resolution stopped early", "err", err)
	}

	if req.ResponseTokenList {
		if resp.Tokens == nil && resp.Topic == "" {
			resp.Tokens = []string{}
		}
		resp.Results = notify.DispatchResult{}
		return resp, nil
	}

	resp.Results = tally.Results
	resp.Failures = tally.Failures
	if len(tally.Failures) > 0 {
		logger.Warn("Notification sent with failed batches",
			"delivered", len(tally.Results), "failed", len(tally.Failures))
	} else {
		logger.Log(ctx, trace, "Notification sent", "batches", len(tally.Results), "dry_run", req.DryRun)
	}
	return resp, nil
}

// Validate checks req without touching the store and returns its target.
func (e *Engine) Validate(req *notify.Request) (notify.Target, error) {
	if req == nil {
		return nil, notify.NewValidationError("request", "missing")
	}
	target, targetErr := req.Target()

	if err := e.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return target, notify.NewValidationError(fe.Namespace(), fmt.Sprintf("failed on %q", fe.Tag()))
		}
		return target, notify.NewValidationError("request", err.Error())
	}
	if targetErr != nil {
		return nil, targetErr
	}

	switch t := target.(type) {
	case notify.CollectionTarget:
		return target, validateConditions("collectionTarget.filters", t.Filters)
	case notify.DocumentTarget:
		return target, validateConditions("documentTarget.filters", t.Filters)
	}
	return target, nil
}

func validateConditions(field string, conds []notify.Condition) error {
	for i, c := range conds {
		name := fmt.Sprintf("%s[%d]", field, i)
		if !c.Op.Valid() {
			return notify.NewValidationError(name, fmt.Sprintf("unknown operator %q", c.Op))
		}
		if c.Op.NeedsValue() && c.Value == nil {
			return notify.NewValidationError(name, fmt.Sprintf("operator %q requires a value", c.Op))
		}
		if c.Op.NeedsList() {
			if _, ok := c.Value.([]any); !ok {
				if _, ok := c.Value.([]string); !ok {
					return notify.NewValidationError(name, fmt.Sprintf("operator %q requires a list value", c.Op))
				}
			}
		}
	}
	return nil
}

func (e *Engine) record(target, outcome string) {
	if e.metrics != nil {
		e.metrics.RecordRequest(target, outcome)
	}
}

func kindOf(t notify.Target) string {
	switch t.(type) {
	case notify.TokenTarget:
		return "token"
	case notify.TopicTarget:
		return "topic"
	case notify.CollectionTarget:
		return "collection"
	case notify.DocumentTarget:
		return "document"
	}
	return "none"
}
