package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/rishabhrocktheparty-ai/Blackgpt/cache"
	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
	"github.com/rishabhrocktheparty-ai/Blackgpt/connectors"
	"github.com/rishabhrocktheparty-ai/Blackgpt/correlation"
	"github.com/rishabhrocktheparty-ai/Blackgpt/database"
	"github.com/rishabhrocktheparty-ai/Blackgpt/events"
	"github.com/rishabhrocktheparty-ai/Blackgpt/handlers"
	"github.com/rishabhrocktheparty-ai/Blackgpt/metrics"
	"github.com/rishabhrocktheparty-ai/Blackgpt/signals"
	"github.com/rishabhrocktheparty-ai/Blackgpt/summarizer"
	"github.com/rishabhrocktheparty-ai/Blackgpt/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and review dashboard",
	Long: `Run the HTTP API, the review dashboard and the Prometheus endpoint.

The schema is migrated on startup. Connectors run in demo mode unless
connectors.demo_mode is false and their API keys are set.

Examples:
  blackgpt serve
  blackgpt serve --config blackgpt.yaml
  BLACKGPT_SERVER_PORT=9000 blackgpt serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, closeLog, err := loadRuntime()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("Tracer shutdown failed", "error", err)
		}
	}()

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		return err
	}

	app, err := buildApp(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	defer app.close()

	if _, err := app.service.ExpireStaleJobs(ctx); err != nil {
		return err
	}

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      app.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.CorrelationBudget() + 15*time.Second, // research waits for the whole run
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting BlackGPT server", "addr", srv.Addr, "demo_mode", cfg.Connectors.DemoMode)
		log.Info("Dashboard available", "url", fmt.Sprintf("http://localhost:%d/dashboard", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

// shutdownTimeout lets an in-flight correlation finish and record its job
// before the process exits.
func shutdownTimeout(cfg *config.Config) time.Duration {
	return max(cfg.Server.ShutdownTimeout, cfg.CorrelationBudget()+5*time.Second)
}

type app struct {
	router    *gin.Engine
	service   *signals.Service
	publisher events.Publisher
	cache     cache.Store
	log       *slog.Logger
}

// buildApp assembles the service graph on top of an opened database.
func buildApp(ctx context.Context, cfg *config.Config, db *gorm.DB, log *slog.Logger) (*app, error) {
	m := metrics.New()

	store, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	publisher, err := events.New(cfg.Events, log)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("init events: %w", err)
	}

	svc := signals.NewService(db, signals.Deps{
		Correlator:    newAggregator(cfg, store, log, m),
		Publisher:     publisher,
		Metrics:       m,
		Logger:        log,
		StaleJobAfter: cfg.Jobs.StaleAfter,
	})

	h := handlers.New(svc, m, log, cfg.Server.Debug)
	return &app{
		router:    handlers.SetupRouter(h, cfg.Tracing.ServiceName),
		service:   svc,
		publisher: publisher,
		cache:     store,
		log:       log,
	}, nil
}

func newAggregator(cfg *config.Config, store cache.Store, log *slog.Logger, m *metrics.Metrics) *correlation.Aggregator {
	built := connectors.FromConfig(cfg.Connectors, store, log, m)
	conns := make([]correlation.Connector, len(built))
	for i, c := range built {
		conns[i] = c
	}

	opts := []correlation.Option{
		// The connector's own HTTP timeout fires first; this only catches
		// sources that ignore their context.
		correlation.WithConnectorTimeout(cfg.Connectors.Timeout + config.ConnectorGrace),
	}
	if s := summarizer.New(cfg.LLM, cfg.Connectors.DemoMode, log); s != nil {
		opts = append(opts, correlation.WithSummarizer(s))
	}
	agg := correlation.NewAggregator(conns, log.With("component", "correlation"), opts...)
	log.Info("Correlation sources configured", "sources", agg.Sources(), "demo_mode", cfg.Connectors.DemoMode)
	return agg
}

func (a *app) close() {
	if err := a.publisher.Close(); err != nil {
		a.log.Warn("Event publisher close failed", "error", err)
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("Cache close failed", "error", err)
		}
	}
}

