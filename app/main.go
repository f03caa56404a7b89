package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tdvo/postgate/app/api"
	"github.com/tdvo/postgate/app/cache"
	"github.com/tdvo/postgate/app/cfg"
	"github.com/tdvo/postgate/app/fetch"
	"github.com/tdvo/postgate/app/sources"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	slog.Info("Starting PostGate server", "version", appCfg.Version)

	srcConfig, err := sources.Load(appCfg.SourcesFile)
	if err != nil {
		slog.Error("Failed to load source definitions", "file", appCfg.SourcesFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Source definitions loaded",
		"rest", srcConfig.REST.URL, "feed", srcConfig.Feed.URL)

	// Initialize core components
	httpClient := &http.Client{}
	fetcher := fetch.NewFetcher(httpClient, srcConfig)
	orchestrator := fetch.NewOrchestrator(fetcher)
	postCache := cache.New(orchestrator, time.Duration(appCfg.CacheTTL)*time.Hour)

	// Warm the cache in the background so the first caller is not stuck
	// behind a full ingestion on a cold start.
	warmCtx, warmCancel := context.WithCancel(context.Background())
	defer warmCancel()
	go func() {
		snap := postCache.Get(warmCtx)
		slog.Info("Cache warm-up complete", "posts", len(snap.Posts), "source", snap.Source)
	}()

	// Initialize HTTP server
	handler := api.NewHandler(postCache, srcConfig.Catalog,
		appCfg.CatalogKey, appCfg.CatalogSecret, appCfg.UserAgent,
		time.Duration(appCfg.CacheTTL)*time.Hour)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	// Graceful shutdown
	slog.Info("Shutting down server gracefully")
	warmCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("PostGate server shutdown complete")
}
