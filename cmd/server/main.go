package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voicebridge/transcription-service/internal/auth"
	"github.com/voicebridge/transcription-service/internal/config"
	"github.com/voicebridge/transcription-service/internal/metrics"
	"github.com/voicebridge/transcription-service/internal/server"
	"github.com/voicebridge/transcription-service/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "transcription-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load environment variables from a .env file when present
	_ = godotenv.Load()

	// Load configuration; a missing file at the default path falls back to
	// defaults, an explicitly requested file must exist.
	cfg, err := config.Load(*configPath, *configPath != defaultConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("bind_address", cfg.HTTP.Address),
		slog.Int64("max_upload_size", cfg.HTTP.MaxUploadSize),
		slog.String("recognizer", cfg.Recognition.RecognizerName),
		slog.String("language_code", cfg.Recognition.LanguageCode),
		slog.String("model", cfg.Recognition.Model),
		slog.Bool("strict_content_type", cfg.Recognition.StrictContentType),
		slog.String("log_level", cfg.Logging.Level),
	)

	if cfg.Recognition.CredentialsPath != "" {
		logger.Info("Using credentials file",
			slog.String("credentials_path", cfg.Recognition.CredentialsPath),
		)
	} else {
		logger.Info("Credentials path not set, relying on Application Default Credentials discovery")
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize the speech client. A construction failure is not fatal:
	// the service keeps serving health checks and every transcription
	// request fails fast with a service-unavailable error.
	transcriptionConfig := transcription.Config{
		RecognizerName:  cfg.Recognition.RecognizerName,
		CredentialsPath: cfg.Recognition.CredentialsPath,
		LanguageCode:    cfg.Recognition.LanguageCode,
		Model:           cfg.Recognition.Model,
		Timeout:         cfg.Recognition.GetTimeoutDuration(),
	}

	client, err := transcription.NewClient(ctx, transcriptionConfig, logger)
	if err != nil {
		logger.Error("Failed to initialize speech client, transcription requests will fail",
			slog.String("error", err.Error()),
		)
		client = transcription.NewUnavailable(transcriptionConfig, logger)
	} else {
		logger.Info("Speech client initialized successfully")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("Error closing speech client", slog.String("error", err.Error()))
		}
	}()

	// Initialize the API key validator
	validator := auth.NewValidator(cfg.Auth.APIKey, logger)

	// Initialize and start the HTTP API server
	httpServer := server.NewHTTPServer(logger, cfg, validator, client, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server (stop accepting new requests, drain in-flight ones)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Get final statistics
	stats := client.GetStats()
	logger.Info("Final transcription statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("success_requests", stats.SuccessRequests),
		slog.Uint64("failed_requests", stats.FailedRequests),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
