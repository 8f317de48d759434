// Storefront server - guitar catalog, cart, wishlist, checkout and admin overlay
// over REST, server-sent events and MCP.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"gopkg.in/natefinch/lumberjack.v2"

	"storefront/internal/catalog"
	"storefront/internal/client"
	"storefront/internal/commerce"
	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/storage"
	"storefront/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Initialize structured logger
	logger, closeLog := initLogger(cfg)
	defer closeLog()

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("catalog_url", cfg.Catalog.URL),
		slog.String("catalog_transport", cfg.Catalog.Transport),
		slog.String("storage", cfg.Storage.Kind),
		slog.Int64("node_id", cfg.NodeID),
	)

	backend, err := storage.Open(cfg.Storage.Kind, cfg.Storage.Location)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	store := storage.New(backend, logger)
	defer store.Close()

	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return fmt.Errorf("creating id generator: %w", err)
	}

	rt, err := transport.New(cfg.Catalog.Transport, cfg.Catalog.FetchTimeout)
	if err != nil {
		return fmt.Errorf("creating catalog transport: %w", err)
	}
	source := catalog.NewHTTPSource(catalog.HTTPSourceConfig{
		URL:          cfg.Catalog.URL,
		FetchTimeout: cfg.Catalog.FetchTimeout,
		FreshFor:     cfg.Catalog.FreshFor,
		Transport:    rt,
	})

	catalogSvc := catalog.NewService(source, store, node, logger)
	commerceSvc := commerce.NewService(store, catalogSvc, node, commerce.Config{
		AdminEmail:      cfg.Store.AdminEmail,
		AdminPassword:   cfg.Store.AdminPassword,
		AdminName:       cfg.Store.AdminName,
		TransferAccount: cfg.Store.TransferAccount,
	}, logger)

	h := handler.New(catalogSvc, commerceSvc, store, logger)

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → request id → logging → client identity → handler
	// Recovery must be outermost to catch panics from logging middleware
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
		client.Middleware(logger),
	)(mux)

	// WriteTimeout is left unset: /events streams stay open indefinitely.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Event streams never finish on their own; force them closed.
			server.Close()
			logger.Warn("forced shutdown", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
	return nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
// When LOG_FILE is set, output goes to a size-rotated file instead of stdout.
func initLogger(cfg *config.Config) (*slog.Logger, func()) {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	var out io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    64, // megabytes
			MaxBackups: 7,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = rotator
		closeFn = func() { rotator.Close() }
	}

	// JSON for production (Cloud Logging compatible), text for development
	if cfg.Environment == "production" {
		return slog.New(slog.NewJSONHandler(out, opts)), closeFn
	}
	return slog.New(slog.NewTextHandler(out, opts)), closeFn
}
