// Package api exposes the notification engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"

	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

const maxRequestBytes = 1 << 20

// Sender is the engine operation the API fronts.
type Sender interface {
	Send(ctx context.Context, req *notify.Request) (*notify.Response, error)
}

type NotificationAPI struct {
	Sender Sender
	Logger *slog.Logger
}

func NewNotificationAPI(sender Sender, logger *slog.Logger) *NotificationAPI {
	return &NotificationAPI{
		Sender: sender,
		Logger: logger.With("component", "NotificationAPI"),
	}
}

// SendNotification handles POST /notifications. Input errors map to 400;
// delivery failures still return 200 with the failed batches listed.
func (api *NotificationAPI) SendNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req notify.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		api.Logger.Warn("SendNotification: JSON Decode failed", "caller", caller, "err", err)
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	resp, err := api.Sender.Send(ctx, &req)
	if err != nil {
		if errors.Is(err, notify.ErrInvalidArgument) {
			api.Logger.Warn("SendNotification: Validation failed", "caller", caller, "err", err)
			response.WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		api.Logger.Error("SendNotification: send failed", "caller", caller, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "send failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		api.Logger.Error("SendNotification: failed to write response", "err", err)
	}
}
