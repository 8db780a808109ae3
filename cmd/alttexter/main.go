// alttexter webhook server — receives blob-created events, generates
// multilingual alt text for product images, and promotes them to the
// public container.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/prodimg/alttexter/pkg/api"
	"github.com/prodimg/alttexter/pkg/config"
	"github.com/prodimg/alttexter/pkg/describe"
	"github.com/prodimg/alttexter/pkg/identity"
	"github.com/prodimg/alttexter/pkg/pipeline"
	"github.com/prodimg/alttexter/pkg/storage"
	"github.com/prodimg/alttexter/pkg/translate"
	"github.com/prodimg/alttexter/pkg/version"
)

// shutdownTimeout bounds how long in-flight webhook requests may drain.
const shutdownTimeout = 5 * time.Second

func main() {
	// Parse command-line flags
	envFile := flag.String("env-file", ".env", "Path to optional .env file")
	flag.Parse()

	// Load .env file (absent file is fine; real deployments inject env vars)
	if err := godotenv.Load(*envFile); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", *envFile, "error", err)
	} else {
		slog.Info("Loaded environment", "path", *envFile)
	}

	// 1. Load configuration
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Install the logger at the configured level
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))

	slog.Info("Starting alttexter",
		"version", version.GitCommit,
		"http_port", cfg.HTTPPort,
		"describer", cfg.Describer,
		"translator", cfg.Translator,
		"storage_account", cfg.StorageAccount,
		"ingest_container", cfg.IngestContainer,
		"public_container", cfg.PublicContainer,
		"locales", cfg.Locales)

	// 3. Managed identity token source (shared by all outbound clients)
	tokens := identity.NewProvider(cfg.ClientID)

	// 4. Object store client
	store := storage.NewClient(cfg.StorageAccount, tokens)

	// 5. Describer and translator per the configured strategies
	describer, err := describe.New(cfg, tokens)
	if err != nil {
		slog.Error("Failed to initialize describer", "error", err)
		os.Exit(1)
	}
	translator, err := translate.New(cfg, tokens)
	if err != nil {
		slog.Error("Failed to initialize translator", "error", err)
		os.Exit(1)
	}

	// 6. Pipeline orchestrator
	orchestrator := pipeline.New(store, describer, translator, cfg)

	// 7. HTTP server (non-blocking)
	server := api.NewServer(orchestrator, cfg.HTTPPort)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	slog.Info("alttexter started successfully")

	// 8. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 9. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
