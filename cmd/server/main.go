package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dauletbeck/freedom/internal/classify"
	"github.com/dauletbeck/freedom/internal/config"
	"github.com/dauletbeck/freedom/internal/db"
	"github.com/dauletbeck/freedom/internal/geo"
	httpapi "github.com/dauletbeck/freedom/internal/http"
	"github.com/dauletbeck/freedom/internal/routing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "freedom-routing").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	var classifier classify.Adapter
	if cfg.ClassifierURL == "" {
		classifier = classify.MockAdapter{ModelVersion: "mock-v1"}
		logger.Info().Msg("using mock classifier adapter")
	} else {
		classifier = classify.HTTPAdapter{BaseURL: cfg.ClassifierURL}
	}

	resolver := &geo.Resolver{Logger: logger}
	if cfg.TwoGISAPIKey != "" {
		resolver.Geocoder = &geo.TwoGISGeocoder{
			BaseURL:     cfg.TwoGISBaseURL,
			APIKey:      cfg.TwoGISAPIKey,
			MinInterval: cfg.GeocodeMinInterval,
		}
	}
	ticketRouter := &routing.Router{
		Resolver: resolver,
		Rotation: routing.NewRotation(),
		Logger:   logger,
	}

	router := httpapi.Router(cfg, store, classifier, ticketRouter, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
