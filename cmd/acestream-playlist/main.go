package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/usanli/acestream-playlist/internal/adapter/driven"
	"github.com/usanli/acestream-playlist/internal/adapter/driver"
	"github.com/usanli/acestream-playlist/internal/application"
	"github.com/usanli/acestream-playlist/internal/circuitbreaker"
	"github.com/usanli/acestream-playlist/internal/config"
	"github.com/usanli/acestream-playlist/internal/logging"
	"github.com/usanli/acestream-playlist/internal/metrics"
	"github.com/usanli/acestream-playlist/internal/rules"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Create structured logger
	logger, logCloser, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}, os.Stdout)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		if err := logCloser.Close(); err != nil {
			log.Printf("error closing log file: %v", err)
		}
	}()

	logger.Info("starting acestream-playlist",
		"addr", cfg.ListenAddr(),
		"search_url", cfg.Acestream.SearchURL,
		"stream_base", cfg.Acestream.StreamBase,
		"playlist_file", cfg.Playlist.File,
		"ttl", cfg.TTL(),
		"rules_file", cfg.Rules.File,
		"log_level", cfg.Log.Level,
	)

	tables, err := rules.LoadFile(cfg.Rules.File)
	if err != nil {
		log.Fatalf("failed to load rules: %v", err)
	}

	breakers := circuitbreaker.NewSet(circuitbreaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Timeout:          cfg.Breaker.Timeout,
		Logger:           logger,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.SetCircuitBreakerState(name, to.String())
		},
	})

	// Create driven adapters
	httpClient := &http.Client{Timeout: cfg.Fetch.Timeout}

	feed := driven.NewAceStreamSearchHTTPAdapter(driven.SearchConfig{
		URL:           cfg.Acestream.SearchURL,
		PageSize:      cfg.Acestream.PageSize,
		MaxPages:      cfg.Acestream.MaxPages,
		RetryAttempts: cfg.Acestream.RetryAttempts,
		RetryDelay:    time.Second,
	}, httpClient, logger)

	fragments := driven.NewFragmentHTTPSource(httpClient, breakers)

	store, err := driven.NewFileArtifactStore(cfg.Playlist.File)
	if err != nil {
		log.Fatalf("failed to create playlist store: %v", err)
	}

	// Create application service
	refreshService := application.NewRefreshService(feed, fragments, store, tables, application.RefreshConfig{
		TTL:                 cfg.TTL(),
		StreamBase:          cfg.Acestream.StreamBase,
		EPGURL:              cfg.Playlist.EPGURL,
		ExternalConcurrency: cfg.Fetch.ExternalConcurrency,
		WarmupAttempts:      cfg.Startup.Attempts,
		WarmupDelay:         cfg.Startup.Delay,
	}, logger)

	// Create HTTP handlers
	mux := http.NewServeMux()
	mux.Handle("/playlist.m3u8", driver.NewPlaylistHTTPHandler(refreshService, logger))
	mux.Handle("/refresh", driver.NewRefreshHTTPHandler(refreshService, logger))
	mux.Handle("/health", driver.NewHealthHTTPHandler(refreshService))
	mux.Handle("/metrics", promhttp.Handler())

	// WriteTimeout is unset: playlist requests may wait on a full rebuild.
	server := &http.Server{
		Addr:        cfg.ListenAddr(),
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	warmupCtx, cancelWarmup := context.WithCancel(context.Background())
	defer cancelWarmup()

	go func() {
		if err := refreshService.Warmup(warmupCtx); err != nil {
			logger.Error("initial playlist build failed", "error", err)
			return
		}
		logger.Info("initial playlist ready")
	}()

	// Start server in a goroutine
	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, shutting down gracefully")
	cancelWarmup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
