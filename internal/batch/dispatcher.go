// Package batch splits token sets into provider sized batches and delivers
// them one at a time.
package batch

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/tinywideclouds/go-notification-engine/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

// Partition splits tokens into consecutive batches of at most size tokens.
// size is capped at notify.MaxBatchSize.
func Partition(tokens []string, size int) [][]string {
	if size <= 0 || size > notify.MaxBatchSize {
		size = notify.MaxBatchSize
	}
	batches := make([][]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := min(start+size, len(tokens))
		batches = append(batches, tokens[start:end])
	}
	return batches
}

// Observer is notified of every delivery attempt.
type Observer interface {
	BatchSent(kind string, size int)
	BatchFailed(kind string, size int)
}

const (
	KindTokens = "tokens"
	KindTopic  = "topic"
)

// Tally accumulates the outcome of every batch of one request. Batch keys
// keep counting across calls so several pages share one numbering.
type Tally struct {
	Results  notify.DispatchResult
	Failures []notify.Failure
	next     int
}

func NewTally() *Tally {
	return &Tally{Results: make(notify.DispatchResult)}
}

// Dispatcher delivers batches sequentially. Provider errors are logged and
// recorded in the Tally; they are never returned.
type Dispatcher struct {
	provider  dispatch.PushProvider
	batchSize int
	observer  Observer
	logger    *slog.Logger
}

func NewDispatcher(provider dispatch.PushProvider, batchSize int, observer Observer, logger *slog.Logger) *Dispatcher {
	if batchSize <= 0 || batchSize > notify.MaxBatchSize {
		batchSize = notify.MaxBatchSize
	}
	return &Dispatcher{
		provider:  provider,
		batchSize: batchSize,
		observer:  observer,
		logger:    logger.With("component", "BatchDispatcher"),
	}
}

// SendTokens partitions tokens and makes one provider call per batch.
func (d *Dispatcher) SendTokens(ctx context.Context, payload notify.Payload, tokens []string, dryRun bool, tally *Tally) {
	for _, b := range Partition(tokens, d.batchSize) {
		key := strconv.Itoa(tally.next)
		tally.next++

		if err := ctx.Err(); err != nil {
			d.fail(tally, KindTokens, key, len(b), payload, err)
			continue
		}

		id, err := d.provider.SendMulticast(ctx, payload, b, dryRun)
		if err != nil {
			d.fail(tally, KindTokens, key, len(b), payload, err)
			continue
		}
		tally.Results[key] = id
		if d.observer != nil {
			d.observer.BatchSent(KindTokens, len(b))
		}
		d.logger.Debug("Batch delivered", "batch", key, "size", len(b), "message_id", id, "dry_run", dryRun)
	}
}

// SendTopic makes a single provider call for topic.
func (d *Dispatcher) SendTopic(ctx context.Context, payload notify.Payload, topic string, dryRun bool, tally *Tally) {
	id, err := d.provider.SendToTopic(ctx, payload, topic, dryRun)
	if err != nil {
		d.fail(tally, KindTopic, topic, 0, payload, err)
		return
	}
	tally.Results[topic] = id
	if d.observer != nil {
		d.observer.BatchSent(KindTopic, 0)
	}
	d.logger.Debug("Topic delivered", "topic", topic, "message_id", id, "dry_run", dryRun)
}

func (d *Dispatcher) fail(tally *Tally, kind, key string, size int, payload notify.Payload, err error) {
	d.logger.Error("Delivery failed; skipping", "kind", kind, "key", key, "size", size, "payload", payload, "err", err)
	tally.Failures = append(tally.Failures, notify.Failure{Key: key, Size: size, Error: err.Error()})
	if d.observer != nil {
		d.observer.BatchFailed(kind, size)
	}
}
