// Package pipeline contains the core message processing components for the service.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

// RequestValidator checks a request without dispatching it.
type RequestValidator interface {
	Validate(req *notify.Request) (notify.Target, error)
}

// NewNotificationRequestTransformer returns a dataflow Transformer that
// unmarshals a raw payload into a notify.Request and validates it. Malformed
// or invalid requests are returned as errors with skip set, so the
// StreamingService nacks them towards the dead letter topic.
func NewNotificationRequestTransformer(
	validator RequestValidator,
) func(context.Context, *messagepipeline.Message) (*notify.Request, bool, error) {
	return func(_ context.Context, msg *messagepipeline.Message) (*notify.Request, bool, error) {
		var req notify.Request
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return nil, true, fmt.Errorf("failed to unmarshal notification request from message %s: %w", msg.ID, err)
		}
		if _, err := validator.Validate(&req); err != nil {
			return nil, true, fmt.Errorf("invalid notification request in message %s: %w", msg.ID, err)
		}
		return &req, false, nil
	}
}
