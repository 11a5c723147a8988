// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

// Package supervisor runs the gateway's long-lived services under a suture
// supervision tree. The gateway is a single process with one serving
// surface, so the tree is flat: the root restarts the HTTP service if it
// crashes, with backoff once failures accumulate.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Config holds the supervision parameters.
type Config struct {
	// FailureThreshold is the failure score that triggers backoff.
	FailureThreshold float64
	// FailureDecay is the failure score half-life in seconds.
	FailureDecay float64
	// FailureBackoff is how long the supervisor pauses once the threshold
	// is exceeded.
	FailureBackoff time.Duration
	// ShutdownTimeout bounds graceful service shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns suture's documented defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is the root supervisor.
type Tree struct {
	root *suture.Supervisor
}

// NewTree builds the supervision tree. The slog logger receives suture's
// lifecycle events; bridge it from the global zerolog logger with
// logging.NewSlogLogger.
func NewTree(logger *slog.Logger, cfg Config) *Tree {
	handler := &sutureslog.Handler{Logger: logger}

	root := suture.New("veriloc", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})

	return &Tree{root: root}
}

// Add registers a service with the tree.
func (t *Tree) Add(svc suture.Service) suture.ServiceToken {
	return t.root.Add(svc)
}

// Serve runs the tree until the context is cancelled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}
