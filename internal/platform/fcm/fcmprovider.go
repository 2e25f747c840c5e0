package fcm

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

// ClickAction is the Android intent action Flutter apps listen for.
const ClickAction = "FLUTTER_NOTIFICATION_CLICK"

// MessagingClient defines the subset of the Firebase Messaging API we use.
// *messaging.Client satisfies it; tests substitute a mock.
type MessagingClient interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
	SendEachForMulticastDryRun(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
	Send(ctx context.Context, msg *messaging.Message) (string, error)
	SendDryRun(ctx context.Context, msg *messaging.Message) (string, error)
}

// Provider delivers payloads through Firebase Cloud Messaging.
type Provider struct {
	client MessagingClient
	logger *slog.Logger
}

func NewProvider(client MessagingClient, logger *slog.Logger) *Provider {
	return &Provider{
		client: client,
		logger: logger.With("component", "FCMProvider"),
	}
}

// SendMulticast sends one batch. The returned identifier summarises the
// per-token outcome; individual token rejections are logged, not returned.
func (p *Provider) SendMulticast(ctx context.Context, payload notify.Payload, tokens []string, dryRun bool) (string, error) {
	if len(tokens) == 0 {
		return "skipped: no tokens", nil
	}
	if len(tokens) > notify.MaxBatchSize {
		return "", fmt.Errorf("batch of %d tokens exceeds the limit of %d", len(tokens), notify.MaxBatchSize)
	}

	msg := &messaging.MulticastMessage{
		Tokens:       tokens,
		Data:         payload.Data,
		Notification: notification(payload),
		Android:      android(payload),
		APNS:         apns(payload),
	}

	send := p.client.SendEachForMulticast
	if dryRun {
		send = p.client.SendEachForMulticastDryRun
	}
	br, err := send(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("fcm multicast failed: %w", err)
	}

	var invalid int
	if br.FailureCount > 0 {
		for idx, resp := range br.Responses {
			if resp.Success {
				continue
			}
			if messaging.IsInvalidArgument(resp.Error) || messaging.IsRegistrationTokenNotRegistered(resp.Error) {
				invalid++
			}
			p.logger.Debug("FCM rejected token", "token", tokens[idx], "err", resp.Error)
		}
	}

	return fmt.Sprintf("success:%d failure:%d invalid:%d", br.SuccessCount, br.FailureCount, invalid), nil
}

// SendToTopic returns the FCM message name, e.g. "projects/p/messages/123".
func (p *Provider) SendToTopic(ctx context.Context, payload notify.Payload, topic string, dryRun bool) (string, error) {
	msg := &messaging.Message{
		Topic:        topic,
		Data:         payload.Data,
		Notification: notification(payload),
		Android:      android(payload),
		APNS:         apns(payload),
	}

	send := p.client.Send
	if dryRun {
		send = p.client.SendDryRun
	}
	id, err := send(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("fcm topic send to %q failed: %w", topic, err)
	}
	return id, nil
}

func notification(payload notify.Payload) *messaging.Notification {
	return &messaging.Notification{
		Title: payload.Title,
		Body:  payload.Body,
	}
}

func android(payload notify.Payload) *messaging.AndroidConfig {
	return &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			Title:       payload.Title,
			Body:        payload.Body,
			ChannelID:   payload.ChannelID,
			Sound:       payload.Sound,
			ClickAction: ClickAction,
		},
	}
}

func apns(payload notify.Payload) *messaging.APNSConfig {
	aps := &messaging.Aps{
		Badge: payload.BadgeCount,
		Sound: payload.Sound,
	}
	return &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{Aps: aps},
	}
}
