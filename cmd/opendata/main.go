package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/geesthacht-opendata/internal/ckan/aggregator"
	"github.com/geesthacht-opendata/internal/ckan/refresh"
	"github.com/geesthacht-opendata/internal/common/config"
	"github.com/geesthacht-opendata/internal/common/logger"
	"github.com/geesthacht-opendata/internal/server"
	"github.com/geesthacht-opendata/pkg/ckan/models"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.NewWithConfig(logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		Console:    true,
		FilePath:   cfg.Logging.FilePath,
		DiscordURL: cfg.Logging.DiscordURL,
		TimeFormat: time.RFC3339,
	})
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		log.Warn("Could not read .env file", "error", envErr)
	}

	endpoints := make([]aggregator.Endpoint, 0, len(cfg.CKAN.Endpoints))
	for _, ep := range cfg.CKAN.Endpoints {
		endpoints = append(endpoints, aggregator.Endpoint{Name: ep.Name, BaseURL: ep.URL, Rows: ep.Rows})
	}

	log.Info("Open data aggregator starting",
		"version", "1.0.0",
		"log_level", cfg.Logging.Level,
		"endpoints", len(endpoints),
		"default_query", cfg.CKAN.DefaultQuery,
		"refresh_interval", cfg.Refresh.Interval)

	client := aggregator.New(aggregator.Config{
		Endpoints:        endpoints,
		DefaultQuery:     cfg.CKAN.DefaultQuery,
		EndpointTimeout:  cfg.CKAN.EndpointTimeout,
		ResourceTimeout:  cfg.CKAN.ResourceTimeout,
		MaxResourceBytes: cfg.CKAN.MaxResourceBytes,
		TermConcurrency:  cfg.CKAN.TermConcurrency,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	srv := server.NewServer(client, server.Config{Addr: cfg.Server.Addr()}, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(); err != nil {
			log.Error("HTTP server error", "error", err)
		}
	}()

	if cfg.Refresh.Interval > 0 {
		scheduler := refresh.NewScheduler(refresh.Config{
			Terms:    cfg.Refresh.Terms,
			Interval: cfg.Refresh.Interval,
		}, client, logSnapshot(log), log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := scheduler.Start(ctx); err != nil {
				log.Error("Refresh scheduler error", "error", err)
			}
		}()
	} else {
		log.Info("Refresh scheduler disabled")
	}

	<-sigChan
	log.Info("Shutdown signal received")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}

	wg.Wait()

	log.Info("Open data aggregator stopped")
}

func logSnapshot(log logger.Logger) refresh.Handler {
	return func(snap refresh.Snapshot) {
		if len(snap.Datasets) == 0 {
			log.Warn("Refresh found no datasets; portals may be unavailable",
				"run_id", snap.RunID,
				"terms", snap.Terms)
			return
		}
		for _, pkg := range snap.Datasets {
			log.Debug("Dataset",
				"run_id", snap.RunID,
				"id", pkg.ID,
				"title", pkg.Title,
				"organization", pkg.OrganizationName(),
				"resources", len(pkg.Resources),
				"modified", models.DisplayDate(pkg.MetadataModified))
		}
	}
}
