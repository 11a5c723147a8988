// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package api

import (
	"context"
	"sync"
	"time"

	"github.com/veriloc/veriloc/internal/logging"
)

// Tracker runs the background verification tasks spawned by the store
// endpoints and tracks them to completion, so graceful shutdown can drain
// in-flight work instead of dropping it.
type Tracker struct {
	wg sync.WaitGroup

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewTracker builds a tracker. Tasks run under a context detached from the
// spawning request (the response returns before the work finishes) but
// cancelled at shutdown.
func NewTracker() *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{ctx: ctx, cancel: cancel}
}

// Go runs fn in a tracked goroutine. The correlation id of the spawning
// request is carried over so background log lines stay correlated.
func (t *Tracker) Go(reqCtx context.Context, name string, fn func(ctx context.Context)) {
	taskCtx := t.ctx
	if id := logging.CorrelationIDFromContext(reqCtx); id != "" {
		taskCtx = logging.ContextWithCorrelationID(taskCtx, id)
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				logging.Ctx(taskCtx).Error().Str("task", name).Interface("panic", rec).
					Msg("background task panicked")
			}
		}()
		fn(taskCtx)
	}()
}

// Shutdown cancels outstanding tasks and waits up to the grace period for
// them to finish.
func (t *Tracker) Shutdown(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.cancel()
	case <-time.After(grace):
		logging.Warn().Dur("grace", grace).Msg("background tasks still running, cancelling")
		t.cancel()
		<-done
	}
}
