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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polarityio/pulsedive/internal/adapter/controller/http/handlers"
	"github.com/polarityio/pulsedive/internal/adapter/controller/http/middleware"
	"github.com/polarityio/pulsedive/internal/config"
	"github.com/polarityio/pulsedive/internal/entity"
	"github.com/polarityio/pulsedive/internal/usecase/lookup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg)
	logger.Info("Starting Pulsedive lookup API",
		"env", cfg.App.Env,
		"port", cfg.App.Port,
	)

	service, err := lookup.NewServiceFromConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize lookup service", "error", err)
		os.Exit(1)
	}

	if errs := lookup.ValidateOptions(entity.RawOptions{"apiKey": {Value: cfg.Pulsedive.APIKey}}); len(errs) > 0 {
		logger.Warn("Default options are incomplete, requests must supply their own API key", "errors", errs)
	}

	lookupHandler := handlers.NewLookupHandler(service, cfg.LookupOptions())

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(chimw.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(httprate.LimitByIP(100, time.Minute))

	r.Get("/health", handlers.HealthCheck(cfg))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/lookup", lookupHandler.Lookup)
		r.Get("/lookup/{indicator}", lookupHandler.LookupOne)
		r.Post("/validate", lookupHandler.Validate)
	})

	addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}
