// Package main is the entry point for the port reconnaissance service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/api"
	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/config"
	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/logging"
	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/publisher"
	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/scanner"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	sugar, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer sugar.Sync() //nolint:errcheck

	sugar.Infow("Configuration loaded",
		"port", cfg.Server.Port,
		"timeout_ms", cfg.Scanner.Timeout,
		"batch_size", cfg.Scanner.BatchSize,
		"scan_full_range", cfg.Scanner.FullRange(),
		"rabbitmq_enabled", cfg.RabbitMQ.Enabled,
		"watch_enabled", cfg.Watch.Enabled,
	)

	// Initialize RabbitMQ publisher
	var pub scanner.Publisher
	if cfg.RabbitMQ.Enabled {
		p, err := publisher.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, sugar)
		if err != nil {
			sugar.Fatalf("Failed to initialize publisher: %v", err)
		}
		defer p.Close()
		pub = p
	}

	scan := scanner.New(cfg.Scanner, pub, sugar)
	scan.Registry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	watcher := scanner.NewWatcher(scan, cfg.Watch, sugar)
	if cfg.Watch.Enabled {
		if err := watcher.Start(); err != nil {
			sugar.Fatalf("Failed to start watcher: %v", err)
		}
	}

	server := api.New(cfg.Server, scan, watcher, sugar)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infof("HTTP server listening on port %d", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	watcher.Stop()

	if err := httpServer.Shutdown(ctx); err != nil {
		sugar.Errorf("Server forced to shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}
