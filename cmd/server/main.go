package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skypro1111/capture-audio-service/internal/audio"
	"github.com/skypro1111/capture-audio-service/internal/capture"
	"github.com/skypro1111/capture-audio-service/internal/config"
	"github.com/skypro1111/capture-audio-service/internal/metrics"
	"github.com/skypro1111/capture-audio-service/internal/pipeline"
	"github.com/skypro1111/capture-audio-service/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "capture-audio-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration, falling back to defaults when no file is present
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.Default()
		} else {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.String("capture_backend", cfg.Capture.Backend),
		slog.Int("sample_rate", cfg.Capture.SampleRate),
		slog.Int("channels", cfg.Capture.Channels),
		slog.Int("buffer_max_size_bytes", cfg.Buffer.MaxSizeBytes),
		slog.Int("batch_size", cfg.Buffer.BatchSize),
		slog.Bool("vad_enabled", cfg.VAD.Enabled),
		slog.Int("vad_mode", cfg.VAD.Mode),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.New()
	logger.Info("Prometheus metrics initialized")

	// Create the capture backend
	backend, err := capture.New(cfg.Capture.Backend, cfg.Capture.Device,
		cfg.Capture.SampleRate, cfg.Capture.Channels)
	if err != nil {
		logger.Error("Failed to create capture backend", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Capture backend initialized",
		slog.String("backend", cfg.Capture.Backend),
		slog.String("device", cfg.Capture.Device),
	)

	// Create the bounded buffer and the pipeline around it
	buffer := audio.NewBufferWithSize(cfg.Buffer.MaxSizeBytes)

	pipelineConfig := pipeline.Config{
		SampleRate:      cfg.Capture.SampleRate,
		BatchSize:       cfg.Buffer.BatchSize,
		DrainInterval:   cfg.Buffer.DrainInterval(),
		VADEnabled:      cfg.VAD.Enabled,
		VADMode:         cfg.VAD.Mode,
		FrameDurationMs: cfg.VAD.FrameDurationMs,
	}

	p, err := pipeline.New(backend, buffer, logger, appMetrics, pipelineConfig)
	if err != nil {
		logger.Error("Failed to create pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Log drained chunks; real consumers replace this handler.
	p.SetChunkHandler(func(chunk audio.Chunk, speech bool) {
		logger.Debug("Chunk drained",
			slog.Int("samples", len(chunk.Samples)),
			slog.Int("sample_rate", chunk.SampleRate),
			slog.Bool("speech", speech),
		)
	})

	logger.Info("Pipeline initialized", slog.String("session_id", p.ID()))

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, p, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Start the pipeline
	if err := p.Start(); err != nil {
		logger.Error("Failed to start pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop the pipeline (stops capture, drains remaining chunks)
	if err := p.Stop(); err != nil {
		logger.Error("Error stopping pipeline", slog.String("error", err.Error()))
	}

	// Final statistics
	stats := p.Stats()
	logger.Info("Final pipeline statistics",
		slog.Uint64("samples_captured", stats.SamplesCaptured),
		slog.Uint64("decode_failures", stats.DecodeFailures),
		slog.Uint64("chunks_delivered", stats.ChunksDelivered),
		slog.Uint64("chunks_evicted", stats.Buffer.ChunksEvicted),
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

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
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
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
