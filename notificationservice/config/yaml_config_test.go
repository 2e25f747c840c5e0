package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"gopkg.in/yaml.v3"

	"github.com/tinywideclouds/go-notification-engine/notificationservice/config"
)

func TestNewConfigFromYaml(t *testing.T) {
	logger := newTestLogger()

	t.Run("Success - maps all fields correctly", func(t *testing.T) {
		raw := `
project_id: yaml-project
listen_addr: ":9000"
topic_id: yaml-topic
subscription_id: yaml-subscription
subscription_dlq_topic_id: yaml-dlq
num_pipeline_workers: 5
push_provider: apns
store_backend: memory
batch_size: 200
page_size: 100
cors:
  allowed_origins: ["http://yaml.com"]
  role: editor
redis:
  addr: localhost:6379
  enabled: true
  ttl: 10m
apns:
  key_id: KEY
  team_id: TEAM
  bundle_id: com.yaml.app
  sandbox: true
`
		var yamlCfg config.YamlConfig
		require.NoError(t, yaml.Unmarshal([]byte(raw), &yamlCfg))

		cfg, err := config.NewConfigFromYaml(&yamlCfg, logger)

		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "yaml-project", cfg.ProjectID)
		assert.Equal(t, ":9000", cfg.ListenAddr)
		assert.Equal(t, "yaml-topic", cfg.TopicID)
		assert.Equal(t, "yaml-subscription", cfg.SubscriptionID)
		assert.Equal(t, "yaml-dlq", cfg.SubscriptionDLQTopicID)
		assert.Equal(t, 5, cfg.NumPipelineWorkers)
		assert.Equal(t, "apns", cfg.PushProvider)
		assert.Equal(t, "memory", cfg.StoreBackend)
		assert.Equal(t, 200, cfg.BatchSize)
		assert.Equal(t, 100, cfg.PageSize)

		assert.Equal(t, []string{"http://yaml.com"}, cfg.CorsConfig.AllowedOrigins)
		assert.Equal(t, middleware.CorsRoleEditor, cfg.CorsConfig.Role)

		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)

		assert.Equal(t, "com.yaml.app", cfg.APNS.BundleID)
		assert.True(t, cfg.APNS.Sandbox)
		assert.Empty(t, cfg.APNS.P8KeyContent)

		assert.NotNil(t, cfg.PubsubConsumerConfig)
	})

	t.Run("Success - Handles missing optional fields gracefully", func(t *testing.T) {
		yamlCfg := &config.YamlConfig{
			ProjectID:      "minimal-project",
			SubscriptionID: "minimal-sub",
		}

		cfg, err := config.NewConfigFromYaml(yamlCfg, logger)

		require.NoError(t, err)
		assert.Equal(t, "minimal-project", cfg.ProjectID)
		assert.Equal(t, 0, cfg.NumPipelineWorkers)
		assert.Empty(t, cfg.ListenAddr)
		assert.Zero(t, cfg.Redis.TTL)
	})

	t.Run("Failure - Bad redis ttl", func(t *testing.T) {
		yamlCfg := &config.YamlConfig{RedisConfig: config.YamlRedisConfig{TTL: "later"}}

		_, err := config.NewConfigFromYaml(yamlCfg, logger)

		require.Error(t, err)
	})
}
