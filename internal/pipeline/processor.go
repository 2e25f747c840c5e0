package pipeline

import (
	"context"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

// Sender is the engine operation a pipeline message is handed to.
type Sender interface {
	Send(ctx context.Context, req *notify.Request) (*notify.Response, error)
}

// NewProcessor sends each decoded request through the engine. Failed batches
// are logged and the message is still acked: a redelivery would repeat the
// batches that did go out.
func NewProcessor(sender Sender, logger *slog.Logger) messagepipeline.StreamProcessor[notify.Request] {
	return func(ctx context.Context, original messagepipeline.Message, request *notify.Request) error {
		procLogger := logger.With("pubsub_msg_id", original.ID)

		resp, err := sender.Send(ctx, request)
		if err != nil {
			procLogger.Error("Notification send failed", "err", err)
			return err
		}

		if len(resp.Failures) > 0 {
			procLogger.Warn("Notification partially delivered",
				"delivered", len(resp.Results), "failed", len(resp.Failures))
			return nil
		}
		procLogger.Info("Notification dispatched", "batches", len(resp.Results), "dry_run", request.DryRun)
		return nil
	}
}
