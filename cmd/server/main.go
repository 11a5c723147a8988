// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

// Package main is the entry point for the VeriLoc gateway.
//
// VeriLoc ingests position-telemetry feeds from mobile users and IoT
// devices, verifies each reported GNSS fix against a regional raw-signal
// oracle, and forwards anonymized, classified results to the downstream
// stores, with one accounting record per batch attempt.
//
// Startup order:
//
//  1. Configuration: koanf layering (defaults, YAML file, VERILOC_* env)
//  2. Logging: zerolog, JSON or console format
//  3. Identity: initial oracle token fetch (fatal if credentials rejected)
//  4. Verification pipeline: region classifier, oracle client, engine,
//     admission gates, downstream sink clients
//  5. HTTP server under the suture supervision tree
//
// Shutdown on SIGINT/SIGTERM: stop accepting connections, drain in-flight
// requests, then drain tracked background verification tasks.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/veriloc/veriloc/internal/admission"
	"github.com/veriloc/veriloc/internal/api"
	"github.com/veriloc/veriloc/internal/config"
	"github.com/veriloc/veriloc/internal/identity"
	"github.com/veriloc/veriloc/internal/logging"
	"github.com/veriloc/veriloc/internal/oracle"
	"github.com/veriloc/veriloc/internal/region"
	"github.com/veriloc/veriloc/internal/sink"
	"github.com/veriloc/veriloc/internal/supervisor"
	"github.com/veriloc/veriloc/internal/verify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Int("regions", len(cfg.Oracle.Regions)).
		Str("listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("Starting VeriLoc gateway")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Oracle credentials are fetched before serving: a gateway that cannot
	// authenticate against the oracle must not accept feeds.
	tokens := identity.New(cfg.Identity)
	if err := tokens.Setup(ctx); err != nil {
		if errors.Is(err, identity.ErrBadCredentials) {
			logging.Fatal().Err(err).Msg("Identity provider rejected gateway credentials")
		}
		logging.Fatal().Err(err).Msg("Failed to establish identity session")
	}
	defer tokens.Close()
	logging.Info().Msg("Identity session established")

	classifier, err := region.NewClassifier(cfg.Oracle.Regions)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build region classifier")
	}

	oracleClient := oracle.New(cfg.Oracle, tokens, classifier.Regions())
	defer oracleClient.Close()

	engine := verify.New(cfg.Verification, oracleClient, classifier)
	gates := admission.New(cfg.Admission)

	accounting := sink.NewAccounting(cfg.Accounting)
	defer accounting.Close()
	anonymizer := sink.NewAnonymizer(cfg.Anonymizer)
	defer anonymizer.Close()
	anonengine := sink.NewAnonengine(cfg.Anonengine)
	defer anonengine.Close()

	tracker := api.NewTracker()
	server := api.NewServer(cfg, engine, gates, accounting, anonymizer, anonengine, tracker)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	treeCfg := supervisor.DefaultConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)
	tree.Add(supervisor.NewHTTPService(httpServer, cfg.Server.ShutdownTimeout))

	logging.Info().Msg("Supervision tree starting")
	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervision tree exited with error")
		tracker.Shutdown(cfg.Server.ShutdownTimeout)
		os.Exit(1)
	}

	logging.Info().Msg("Draining background verification tasks")
	tracker.Shutdown(cfg.Server.ShutdownTimeout)
	logging.Info().Msg("Shutdown complete")
}
