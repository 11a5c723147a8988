// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package oracle

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/veriloc/veriloc/internal/logging"
	"github.com/veriloc/veriloc/internal/metrics"
)

// regionState holds the per-region resilience machinery: a circuit breaker
// that trips when a regional deployment keeps failing, and a client-side
// rate limiter that keeps the gateway a polite oracle tenant.
type regionState struct {
	name    string
	cb      *gobreaker.CircuitBreaker[*exchangeResult]
	limiter *rate.Limiter
}

// newRegionState builds the breaker and limiter for one region.
// Breaker policy: opens at >=60% failures over a minimum of 10 requests,
// counts reset every minute while closed, half-open probe after 30 s.
func newRegionState(name string, requestsPerSecond float64) *regionState {
	cbName := "oracle-" + name
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[*exchangeResult](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= breakerFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).
				Msg("oracle circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)+1)
	}

	return &regionState{name: name, cb: cb, limiter: limiter}
}

const (
	breakerInterval     = time.Minute
	breakerTimeout      = 30 * time.Second
	breakerMinRequests  = 10
	breakerFailureRatio = 0.6
)

// wait blocks until the rate limiter admits one request, or the context is
// done. A nil limiter admits immediately.
func (s *regionState) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// execute runs one exchange through the breaker, recording the outcome.
func (s *regionState) execute(fn func() (*exchangeResult, error)) (*exchangeResult, error) {
	result, err := s.cb.Execute(fn)
	cbName := "oracle-" + s.name
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(cbName, "success").Inc()
	case err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests:
		metrics.CircuitBreakerRequests.WithLabelValues(cbName, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(cbName, "failure").Inc()
	}
	return result, err
}

// stateToString converts a breaker state to its metrics label.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// stateToFloat converts a breaker state to its gauge value.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
