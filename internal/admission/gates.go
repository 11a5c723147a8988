// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

// Package admission throttles concurrent verification pipelines.
//
// Two layers of gating exist. A per-(feed, operation) gate bounds how many
// batches of each kind are in flight at once; a submission that cannot get a
// slot within the probe wait is rejected with a backpressure signal before
// any background work is scheduled. Admitted work then acquires the shared
// authentication gate before contacting the oracle, capping concurrent
// oracle pipelines independently of feed-level admission.
package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/veriloc/veriloc/internal/config"
	"github.com/veriloc/veriloc/internal/metrics"
)

// ErrSaturated means no gate slot became free within the probe wait.
// Callers map it to a retry-later response; no partial work is left behind.
var ErrSaturated = errors.New("verification pipeline saturated, retry later")

// Feed identifies the batch kind.
type Feed string

const (
	FeedUser Feed = "user"
	FeedIoT  Feed = "iot"
)

// Operation identifies what happens after verification.
type Operation string

const (
	OpStore Operation = "store"
	OpTest  Operation = "test"
)

// gateKey keys the registry.
type gateKey struct {
	feed Feed
	op   Operation
}

// Gates is the admission-control registry, built once at startup.
type Gates struct {
	pools     map[gateKey]*semaphore.Weighted
	auth      *semaphore.Weighted
	probeWait time.Duration
}

// New builds the registry from the configured capacities.
func New(cfg config.AdmissionConfig) *Gates {
	return &Gates{
		pools: map[gateKey]*semaphore.Weighted{
			{FeedUser, OpStore}: semaphore.NewWeighted(int64(cfg.UserStore)),
			{FeedUser, OpTest}:  semaphore.NewWeighted(int64(cfg.UserTest)),
			{FeedIoT, OpStore}:  semaphore.NewWeighted(int64(cfg.IoTStore)),
			{FeedIoT, OpTest}:   semaphore.NewWeighted(int64(cfg.IoTTest)),
		},
		auth:      semaphore.NewWeighted(int64(cfg.Auth)),
		probeWait: cfg.ProbeWait,
	}
}

// Admit acquires one slot on the (feed, op) gate, waiting at most the probe
// wait. On success the returned release function must be called on every
// exit path. On saturation it returns ErrSaturated and nothing is held.
func (g *Gates) Admit(ctx context.Context, feed Feed, op Operation) (release func(), err error) {
	sem, ok := g.pools[gateKey{feed, op}]
	if !ok {
		return nil, fmt.Errorf("no admission gate for feed=%s op=%s", feed, op)
	}

	waitCtx, cancel := context.WithTimeout(ctx, g.probeWait)
	defer cancel()

	if err := sem.Acquire(waitCtx, 1); err != nil {
		metrics.AdmissionRejections.WithLabelValues(string(feed), string(op)).Inc()
		return nil, ErrSaturated
	}

	metrics.AdmissionInFlight.WithLabelValues(string(feed), string(op)).Inc()
	return func() {
		metrics.AdmissionInFlight.WithLabelValues(string(feed), string(op)).Dec()
		sem.Release(1)
	}, nil
}

// Authenticate acquires the shared oracle-pipeline gate. Unlike Admit this
// waits without a probe bound: the work was already admitted, so it queues
// for its oracle slot until the batch context is cancelled.
func (g *Gates) Authenticate(ctx context.Context) (release func(), err error) {
	if err := g.auth.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire authentication gate: %w", err)
	}
	return func() { g.auth.Release(1) }, nil
}
