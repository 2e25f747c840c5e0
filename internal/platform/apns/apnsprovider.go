// Package apns provides the client for the Apple Push Notification Service.
package apns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

// ErrTopicUnsupported is returned for topic targets; APNs has no topic fan-out.
var ErrTopicUnsupported = errors.New("apns: topic delivery is not supported")

// APNSClient defines the subset of the apns2.Client methods we use.
// This allows mocking for unit tests.
type APNSClient interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// Config holds the credentials required to sign APNs tokens.
type Config struct {
	KeyID    string
	TeamID   string
	BundleID string
	// P8KeyContent is the raw string content of the .p8 file
	P8KeyContent string
	Sandbox      bool
}

type Provider struct {
	client APNSClient
	topic  string // The App Bundle ID (e.g. com.tinywide.messenger)
	logger *slog.Logger
}

// NewProvider parses the P8 key immediately to fail fast on startup if
// credentials are bad.
func NewProvider(cfg Config, logger *slog.Logger) (*Provider, error) {
	if cfg.BundleID == "" {
		return nil, errors.New("apns: bundle id is required")
	}
	authKey, err := token.AuthKeyFromBytes([]byte(cfg.P8KeyContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse APNs P8 key: %w", err)
	}

	tokenSource := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}

	client := apns2.NewTokenClient(tokenSource)
	if cfg.Sandbox {
		client = client.Development()
	} else {
		client = client.Production()
	}

	return NewProviderWithClient(client, cfg.BundleID, logger), nil
}

func NewProviderWithClient(client APNSClient, bundleID string, logger *slog.Logger) *Provider {
	return &Provider{
		client: client,
		topic:  bundleID,
		logger: logger.With("component", "APNSProvider"),
	}
}

// SendMulticast pushes to each token in turn; the APNs HTTP/2 API has no
// multicast endpoint. A batch only fails as a whole when no push got through
// because of transport errors. With dryRun the payload is built and checked
// but nothing is sent.
func (p *Provider) SendMulticast(ctx context.Context, msg notify.Payload, tokens []string, dryRun bool) (string, error) {
	if len(tokens) == 0 {
		return "skipped: no tokens", nil
	}
	if len(tokens) > notify.MaxBatchSize {
		return "", fmt.Errorf("batch of %d tokens exceeds the limit of %d", len(tokens), notify.MaxBatchSize)
	}

	body := buildPayload(msg)
	if dryRun {
		if _, err := json.Marshal(body); err != nil {
			return "", fmt.Errorf("apns payload is not encodable: %w", err)
		}
		return fmt.Sprintf("dry-run:%d", len(tokens)), nil
	}

	var success, failure, invalid int
	var lastTransportErr error
	for _, deviceToken := range tokens {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		res, err := p.client.PushWithContext(ctx, &apns2.Notification{
			DeviceToken: deviceToken,
			Topic:       p.topic,
			Payload:     body,
			Priority:    apns2.PriorityHigh,
		})
		if err != nil {
			p.logger.Error("APNs transport failed", "token", deviceToken, "err", err)
			lastTransportErr = err
			failure++
			continue
		}

		if res.Sent() {
			success++
			continue
		}
		failure++
		switch res.Reason {
		case apns2.ReasonBadDeviceToken, apns2.ReasonUnregistered, apns2.ReasonDeviceTokenNotForTopic:
			invalid++
			p.logger.Debug("APNs rejected token", "token", deviceToken, "reason", res.Reason)
		default:
			p.logger.Warn("APNs rejected notification", "reason", res.Reason, "status", res.StatusCode)
		}
	}

	if success == 0 && lastTransportErr != nil {
		return "", fmt.Errorf("apns: all %d pushes failed: %w", len(tokens), lastTransportErr)
	}
	return fmt.Sprintf("success:%d failure:%d invalid:%d", success, failure, invalid), nil
}

func (p *Provider) SendToTopic(_ context.Context, _ notify.Payload, topic string, _ bool) (string, error) {
	return "", fmt.Errorf("%w (topic %q)", ErrTopicUnsupported, topic)
}

func buildPayload(msg notify.Payload) *payload.Payload {
	builder := payload.NewPayload().
		AlertTitle(msg.Title).
		AlertBody(msg.Body)
	if msg.Sound != "" {
		builder.Sound(msg.Sound)
	}
	if msg.BadgeCount != nil {
		builder.Badge(*msg.BadgeCount)
	}
	for k, v := range msg.Data {
		builder.Custom(k, v)
	}
	return builder
}
