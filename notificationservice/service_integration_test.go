//go:build integration

package notificationservice_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/google/uuid"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/illmade-knight/go-test/emulators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"

	fsStore "github.com/tinywideclouds/go-notification-engine/internal/storage/firestore"
	"github.com/tinywideclouds/go-notification-engine/notificationservice"
	"github.com/tinywideclouds/go-notification-engine/notificationservice/config"
	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

// --- MOCKS ---

// mockProvider records every batch it is handed.
type mockProvider struct {
	mu      sync.Mutex
	batches [][]string
	topics  []string
}

func (m *mockProvider) SendMulticast(_ context.Context, _ notify.Payload, tokens []string, _ bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]string(nil), tokens...))
	return fmt.Sprintf("success:%d failure:0 invalid:0", len(tokens)), nil
}

func (m *mockProvider) SendToTopic(_ context.Context, _ notify.Payload, topic string, _ bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, topic)
	return "projects/p/messages/1", nil
}

func (m *mockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches) + len(m.topics)
}

func (m *mockProvider) AllTokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []string
	for _, b := range m.batches {
		all = append(all, b...)
	}
	sort.Strings(all)
	return all
}

func noopAuth(h http.Handler) http.Handler { return h }

// --- TEST ---

func TestNotificationService_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	projectID := "test-project-integ"

	// 1. Emulators
	pubsubConn := emulators.SetupPubsubEmulator(t, ctx, emulators.GetDefaultPubsubConfig(projectID))
	psClient, err := pubsub.NewClient(ctx, projectID, pubsubConn.ClientOptions...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = psClient.Close() })

	fsConn := emulators.SetupFirestoreEmulator(t, ctx, emulators.GetDefaultFirestoreConfig(projectID))
	fsClient, err := firestore.NewClient(ctx, projectID, fsConn.ClientOptions...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fsClient.Close() })

	// 2. Seed the collection the request will target
	seed := map[string]map[string]any{
		"alice": {"role": "admin", "fcm": "tok-alice"},
		"bob":   {"role": "admin", "fcm": []any{"tok-bob-1", "tok-bob-2"}},
		"carol": {"role": "member", "fcm": "tok-carol"},
		"dave":  {"role": "admin"},
	}
	for id, data := range seed {
		_, err := fsClient.Collection("users").Doc(id).Set(ctx, data)
		require.NoError(t, err)
	}
	store := fsStore.NewDocumentStore(fsClient)

	t.Run("Pub/Sub collection target reaches the provider", func(t *testing.T) {
		topicID := "push-success-" + uuid.NewString()
		subID := topicID + "-sub"
		createPubsubResources(t, ctx, psClient, projectID, topicID, subID)

		provider := &mockProvider{}
		consumerCfg := *messagepipeline.NewGooglePubsubConsumerDefaults(subID)
		consumer, err := messagepipeline.NewGooglePubsubConsumer(&consumerCfg, psClient, logger)
		require.NoError(t, err)

		svc, err := notificationservice.New(
			&config.Config{ListenAddr: ":0", NumPipelineWorkers: 2, PageSize: 2},
			consumer,
			store,
			provider,
			nil,
			noopAuth,
			logger,
		)
		require.NoError(t, err)

		svcCtx, svcCancel := context.WithCancel(ctx)
		defer svcCancel()
		go func() { _ = svc.Start(svcCtx) }()
		t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

		req := notify.Request{
			Title: "Hello",
			Body:  "Admins only",
			CollectionTarget: &notify.CollectionTarget{
				Path:       "users",
				TokenField: "fcm",
				Filters:    []notify.Condition{{Op: notify.OpEquals, Key: "role", Value: "admin"}},
			},
		}
		payload, err := json.Marshal(req)
		require.NoError(t, err)
		_, err = psClient.Publisher(topicID).Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return len(provider.AllTokens()) == 3
		}, 15*time.Second, 100*time.Millisecond)

		assert.Equal(t, []string{"tok-alice", "tok-bob-1", "tok-bob-2"}, provider.AllTokens())
	})

	t.Run("Engine resolves a document target directly", func(t *testing.T) {
		topicID := "push-direct-" + uuid.NewString()
		subID := topicID + "-sub"
		createPubsubResources(t, ctx, psClient, projectID, topicID, subID)

		provider := &mockProvider{}
		consumerCfg := *messagepipeline.NewGooglePubsubConsumerDefaults(subID)
		consumer, err := messagepipeline.NewGooglePubsubConsumer(&consumerCfg, psClient, logger)
		require.NoError(t, err)

		svc, err := notificationservice.New(&config.Config{ListenAddr: ":0", NumPipelineWorkers: 1}, consumer, store, provider, nil, noopAuth, logger)
		require.NoError(t, err)

		resp, err := svc.Engine().Send(ctx, &notify.Request{
			Title:             "Hi",
			Body:              "Bob",
			DocumentTarget:    &notify.DocumentTarget{Path: "users/bob", TokenField: "fcm"},
			ResponseTokenList: true,
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"tok-bob-1", "tok-bob-2"}, resp.Tokens)
		assert.Equal(t, 0, provider.CallCount())
	})
}

func createPubsubResources(t *testing.T, ctx context.Context, client *pubsub.Client, projectID, topicID, subID string) {
	t.Helper()
	topicName := fmt.Sprintf("projects/%s/topics/%s", projectID, topicID)
	_, err := client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: topicName})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.TopicAdminClient.DeleteTopic(context.Background(), &pubsubpb.DeleteTopicRequest{Topic: topicName})
	})

	subName := fmt.Sprintf("projects/%s/subscriptions/%s", projectID, subID)
	sub := &pubsubpb.Subscription{
		Name:               subName,
		Topic:              topicName,
		AckDeadlineSeconds: 10,
		RetryPolicy: &pubsubpb.RetryPolicy{
			MinimumBackoff: &durationpb.Duration{Seconds: 1},
		},
	}
	_, err = client.SubscriptionAdminClient.CreateSubscription(ctx, sub)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.SubscriptionAdminClient.DeleteSubscription(context.Background(), &pubsubpb.DeleteSubscriptionRequest{Subscription: subName})
	})
}
