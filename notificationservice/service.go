package notificationservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/tinywideclouds/go-notification-engine/internal/api"
	"github.com/tinywideclouds/go-notification-engine/internal/engine"
	"github.com/tinywideclouds/go-notification-engine/internal/metrics"
	"github.com/tinywideclouds/go-notification-engine/internal/pipeline"
	"github.com/tinywideclouds/go-notification-engine/notificationservice/config"
	"github.com/tinywideclouds/go-notification-engine/pkg/dispatch"
	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

type Wrapper struct {
	*microservice.BaseServer
	engine          *engine.Engine
	pipelineService *messagepipeline.StreamingService[notify.Request]
	logger          *slog.Logger
}

// New assembles the engine and exposes it over Pub/Sub and HTTP.
// m may be nil, in which case no /metrics route is registered.
func New(
	cfg *config.Config,
	consumer messagepipeline.MessageConsumer,
	store dispatch.DocumentStore,
	provider dispatch.PushProvider,
	m *metrics.Metrics,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) (*Wrapper, error) {

	// 1. Base Server
	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	// 2. Engine
	eng := engine.New(engine.Config{BatchSize: cfg.BatchSize, PageSize: cfg.PageSize}, store, provider, m, logger)

	// 3. Pipeline
	streamingService, err := messagepipeline.NewStreamingService[notify.Request](
		messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
		consumer,
		pipeline.NewNotificationRequestTransformer(eng),
		pipeline.NewProcessor(eng, logger),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming service: %w", err)
	}

	// 4. API
	notificationAPI := api.NewNotificationAPI(eng, logger)

	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	mux.Handle("OPTIONS /notifications", corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	mux.Handle("POST /notifications", corsMiddleware(authMiddleware(http.HandlerFunc(notificationAPI.SendNotification))))

	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	return &Wrapper{
		BaseServer:      baseServer,
		engine:          eng,
		pipelineService: streamingService,
		logger:          logger,
	}, nil
}

// Engine exposes the wired engine for in-process callers.
func (w *Wrapper) Engine() *engine.Engine {
	return w.engine
}

func (w *Wrapper) Start(ctx context.Context) error {
	w.logger.Info("Core processing pipeline starting...")
	if err := w.pipelineService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start processing service: %w", err)
	}
	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	return w.BaseServer.Start()
}

func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	var finalErr error
	if err := w.pipelineService.Stop(ctx); err != nil {
		w.logger.Error("Processing pipeline shutdown failed.", "err", err)
		finalErr = err
	}
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		finalErr = err
	}
	w.logger.Info("Service shutdown complete.")
	return finalErr
}
