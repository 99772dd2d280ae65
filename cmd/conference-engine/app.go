// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"

	"github.com/pdiddy/conference-engine/internal/enrich"
	"github.com/pdiddy/conference-engine/internal/logging"
	"github.com/pdiddy/conference-engine/internal/lookup"
	"github.com/pdiddy/conference-engine/internal/resolve"
	"github.com/pdiddy/conference-engine/internal/review"
	"github.com/pdiddy/conference-engine/internal/secrets"
	"github.com/pdiddy/conference-engine/internal/store"
	"github.com/pdiddy/conference-engine/pkg/types"
)

// app is the wired pipeline shared by every subcommand.
type app struct {
	cfg      types.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	lookup   *lookup.Client
	store    *store.Store
	service  *review.Service
}

// newApp loads configuration and connects every component. Callers must
// Close the result.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	cfg.Lookup.APIKey = loadedSecrets.Value(secrets.SemanticScholarAPIKey, cfg.Lookup.APIKey)
	cfg.Store.DSN = loadedSecrets.Value(secrets.DatabaseDSN, cfg.Store.DSN)

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	client := lookup.NewClient(cfg.Lookup,
		lookup.WithMetrics(lookup.NewMetrics(reg)),
		lookup.WithLogger(logger))
	resolver := resolve.New(client)
	orchestrator := enrich.New(resolver, enrich.WithLogger(logger))

	svc := review.NewService(orchestrator, resolver, st,
		review.WithLogger(logger),
		review.WithRegisterer(reg))

	logger.Debug("pipeline ready",
		slog.String("driver", string(cfg.Store.Driver)),
		slog.String("lookup", cfg.Lookup.BaseURL),
		slog.Bool("api_key", cfg.Lookup.APIKey != ""))

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		lookup:   client,
		store:    st,
		service:  svc,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
