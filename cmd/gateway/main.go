// Command gateway runs the Voice Assistant Gateway: it loads
// configuration, wires the Tool Registry, Task Repository, identity
// verifier, and Gateway Supervisor, and serves the client-facing
// WebSocket endpoint (§6 "/novasonic") and the Prometheus metrics
// endpoint (§10.5) until it receives a shutdown signal.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AltairaLabs/voice-gateway/internal/gateway"
	"github.com/AltairaLabs/voice-gateway/internal/gwconfig"
	"github.com/AltairaLabs/voice-gateway/internal/gwlog"
	"github.com/AltairaLabs/voice-gateway/internal/identity"
	"github.com/AltairaLabs/voice-gateway/internal/metrics"
	"github.com/AltairaLabs/voice-gateway/internal/modelstream"
	"github.com/AltairaLabs/voice-gateway/internal/session"
	"github.com/AltairaLabs/voice-gateway/internal/taskrepo"
	"github.com/AltairaLabs/voice-gateway/internal/toolcoordinator"
	"github.com/AltairaLabs/voice-gateway/internal/toolregistry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gateway exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := os.Getenv("GATEWAY_CONFIG")
	cfg, err := gwconfig.Load(cfgPath)
	if err != nil {
		return err
	}

	moduleConfig := gwlog.NewModuleConfig(parseLevel(cfg.LogLevel))
	sink := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug - 4})
	logger := gwlog.New(sink, moduleConfig, "gateway")
	slog.SetDefault(logger)

	repo, err := openRepository(cfg.RepositoryDSN)
	if err != nil {
		return err
	}

	tools, err := buildToolRegistry(repo)
	if err != nil {
		return err
	}

	verifier := identity.NewVerifier(cfg.IssuerURL(), cfg.ClientID, "", nil)
	coordinator := toolcoordinator.New(tools, gwlog.New(sink, moduleConfig, "gateway.tools"))

	supervisor := gateway.NewSupervisor(
		gateway.WithMaxConcurrentSessions(cfg.MaxConcurrentStreams),
		gateway.WithIdleTimeout(cfg.IdleTimeout),
		gateway.WithShutdownGrace(cfg.ShutdownGrace),
		gateway.WithLogger(gwlog.New(sink, moduleConfig, "gateway.supervisor")),
	)

	dialer := func(ctx context.Context, idToken string) (modelstream.Transport, error) {
		return modelstream.Dial(ctx, cfg.ModelEndpoint, idToken)
	}

	handler := gateway.NewConnectionHandler(
		verifier,
		tools,
		coordinator,
		dialer,
		supervisor,
		gwlog.New(sink, moduleConfig, "gateway.connection"),
		gateway.WithOutboundQueueCap(cfg.OutboundQueueCap),
		gateway.WithInferenceConfig(session.InferenceConfig{
			MaxTokens:   1024,
			TopP:        0.9,
			Temperature: 0.7,
		}),
	)

	mux := http.NewServeMux()
	mux.Handle("/novasonic", handler)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	exporter := metrics.NewExporter(cfg.MetricsAddr)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gateway listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("metrics listening", "addr", cfg.MetricsAddr)
		if err := exporter.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	supervisor.Shutdown(shutdownCtx)
	_ = server.Shutdown(shutdownCtx)
	_ = exporter.Shutdown(shutdownCtx)
	return nil
}

// parseLevel maps §6's {trace, debug, info, warn, error} vocabulary onto
// slog.Level, with "trace" one step below slog.LevelDebug since slog has
// no native trace level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return slog.LevelDebug - 4
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openRepository selects the Task Repository backend from dsn (§12):
// "memory://" (default) or "file:///path/to/tasks.yaml".
func openRepository(dsn string) (taskrepo.Repository, error) {
	switch {
	case dsn == "" || dsn == "memory://":
		return taskrepo.NewMemoryRepository(), nil
	case strings.HasPrefix(dsn, "file://"):
		return taskrepo.NewFileRepository(strings.TrimPrefix(dsn, "file://"))
	default:
		return taskrepo.NewMemoryRepository(), nil
	}
}

// buildToolRegistry registers the concrete tool set of §4.2: date/time
// lookup plus the task/note CRUD handlers backed by repo.
func buildToolRegistry(repo taskrepo.Repository) (*toolregistry.Registry, error) {
	reg := toolregistry.New()
	if err := toolregistry.RegisterDateTime(reg, time.Now); err != nil {
		return nil, err
	}
	if err := toolregistry.RegisterTaskTools(reg, repo); err != nil {
		return nil, err
	}
	if err := toolregistry.RegisterNoteTools(reg, repo); err != nil {
		return nil, err
	}
	return reg, nil
}
