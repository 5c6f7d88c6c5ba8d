package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ambiware-labs/scribed/internal/bus"
	"github.com/ambiware-labs/scribed/internal/catalog"
	"github.com/ambiware-labs/scribed/internal/config"
	"github.com/ambiware-labs/scribed/internal/jobs"
	"github.com/ambiware-labs/scribed/internal/natsserver"
	"github.com/ambiware-labs/scribed/internal/notes"
	"github.com/ambiware-labs/scribed/internal/pipeline"
	"github.com/ambiware-labs/scribed/internal/search"
	"github.com/ambiware-labs/scribed/internal/segmenter"
	"github.com/ambiware-labs/scribed/internal/server"
	"github.com/ambiware-labs/scribed/internal/speech"
)

// Runtime assembles the catalog, bus, pipeline, worker, and HTTP API into
// one process and manages their lifecycle.
type Runtime struct {
	cfg    config.Config
	logger *slog.Logger
	ready  atomic.Bool

	embedded    *natsserver.EmbeddedServer
	busClient   *bus.Client
	store       *catalog.Store
	worker      *jobs.Worker
	api         *server.Server
	tracerClose func(context.Context) error
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start brings every component up and blocks until ctx is canceled.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("start embedded nats: %w", err)
	}
	r.embedded = embedded

	busCfg := r.cfg.Bus
	if embedded != nil && len(busCfg.Servers) == 0 {
		busCfg.Servers = []string{embedded.ClientURL()}
	}
	busClient, err := bus.Connect(ctx, busCfg, r.logger)
	if err != nil {
		return fmt.Errorf("connect bus: %w", err)
	}
	r.busClient = busClient

	store, err := catalog.Open(ctx, r.cfg.Catalog, r.logger)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	r.store = store

	transcriber, err := speech.NewTranscriber(r.cfg.Speech)
	if err != nil {
		return fmt.Errorf("build speech backend: %w", err)
	}
	generator, err := notes.NewGenerator(r.cfg.Notes)
	if err != nil {
		return fmt.Errorf("build notes backend: %w", err)
	}
	agent := notes.NewAgent(generator, r.cfg.Notes.Model, r.logger)

	var indexer *search.Indexer
	if r.cfg.Search.Enabled {
		indexer = search.NewIndexer(r.cfg.Search, r.logger)
	}

	orchestrator := pipeline.NewOrchestrator(
		store,
		segmenter.New(r.cfg.Pipeline, r.logger),
		transcriber,
		agent,
		indexer,
		r.cfg.Pipeline,
		r.cfg.Storage,
		r.logger,
	)

	dispatcher, err := jobs.NewBusDispatcher(busClient, r.logger)
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}
	worker, err := jobs.NewWorker(busClient, orchestrator, r.cfg.Bus.MaxDeliver, r.logger)
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}
	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	r.worker = worker

	r.api = server.New(store, dispatcher, r.cfg.Storage, r.logger)
	if err := r.api.Start(r.cfg.HTTP, func(mux *http.ServeMux) {
		mux.HandleFunc("/healthz", r.handleHealth)
		mux.HandleFunc("/readyz", r.handleReady)
		if metricHandler != nil {
			mux.Handle("/metrics", metricHandler)
		}
	}); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("service", r.cfg.ServiceName),
		slog.Int("http_port", r.cfg.HTTP.Port))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.ready.Store(false)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := r.api.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.worker.Close()
	r.busClient.Close()
	r.embedded.Shutdown()
	if err := r.store.Close(); err != nil {
		r.logger.Error("catalog close error", slog.String("error", err.Error()))
	}
	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() && r.busClient.Healthy() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
