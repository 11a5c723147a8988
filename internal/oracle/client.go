// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

// Package oracle implements the client for the remote raw-signal
// verification service (uBlox-API).
//
// Two lookup shapes exist: a single-fix lookup keyed by (satellite id,
// timestamp), and a windowed lookup enumerating the timestamps around a fix
// for reconciliation. Both carry a bearer token from the credential cache;
// when the oracle reports the token expired, the request is retried exactly
// once with a freshly fetched token.
//
// Each configured region gets its own circuit breaker and client-side rate
// limiter; a position's lookups all go to the region nearest to it.
package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/veriloc/veriloc/internal/config"
	"github.com/veriloc/veriloc/internal/logging"
	"github.com/veriloc/veriloc/internal/metrics"
	"github.com/veriloc/veriloc/internal/models"
	"github.com/veriloc/veriloc/internal/region"
)

// ErrUnavailable means the oracle could not be reached, timed out, kept
// failing after the token retry, or is circuit-broken.
var ErrUnavailable = errors.New("verification oracle unavailable")

// Kind selects which oracle resource a lookup targets. User trips carry
// Galileo navigation payloads; IoT devices report raw uBlox frames.
type Kind int

const (
	KindGalileo Kind = iota
	KindMessage
)

// TokenSource supplies bearer tokens for oracle requests. Implemented by
// identity.Manager.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// maxBodySize bounds oracle response reads.
const maxBodySize = 4 << 20 // 4MB; window responses carry many payloads

// Client issues lookups against the regional oracle deployments.
type Client struct {
	cfg     config.OracleConfig
	tokens  TokenSource
	http    *http.Client
	regions map[string]*regionState
}

// New constructs a Client covering the given regions.
func New(cfg config.OracleConfig, tokens TokenSource, regions []region.Region) *Client {
	c := &Client{
		cfg:    cfg,
		tokens: tokens,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		regions: make(map[string]*regionState, len(regions)),
	}
	for _, r := range regions {
		c.regions[r.Name] = newRegionState(r.Name, cfg.RequestsPerSecond)
	}
	return c
}

// Close releases the underlying connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// uri returns the resource path for a lookup kind.
func (c *Client) uri(kind Kind) string {
	if kind == KindGalileo {
		return c.cfg.GalileoURI
	}
	return c.cfg.MessageURI
}

// FetchSingle looks up the oracle's payload for the exact (svid, timestamp).
// A nil result with nil error means the oracle has no record; that outcome
// is distinct from ErrUnavailable.
func (c *Client) FetchSingle(ctx context.Context, kind Kind, svid int, timestamp int64, reg region.Region) (*string, error) {
	start := time.Now()
	url := fmt.Sprintf("%s%s/%d/%d", reg.BaseURL, c.uri(kind), svid, timestamp)

	body, err := c.exchangeWithAuthRetry(ctx, reg, http.MethodGet, url, nil)
	if err != nil {
		metrics.OracleRequests.WithLabelValues("single", reg.Name, "error").Inc()
		return nil, err
	}

	var msg models.OracleMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		metrics.OracleRequests.WithLabelValues("single", reg.Name, "error").Inc()
		return nil, fmt.Errorf("%w: parse single response: %v", ErrUnavailable, err)
	}

	metrics.OracleRequestDuration.WithLabelValues("single", reg.Name).Observe(time.Since(start).Seconds())
	if msg.RawData == nil {
		metrics.OracleRequests.WithLabelValues("single", reg.Name, "empty").Inc()
	} else {
		metrics.OracleRequests.WithLabelValues("single", reg.Name, "ok").Inc()
	}
	return msg.RawData, nil
}

// FetchWindow looks up every timestamp in [timestamp-window,
// timestamp+window] stepped by window_step, excluding the exact timestamp
// itself (already covered by FetchSingle). The oracle may return fewer
// entries than requested.
func (c *Client) FetchWindow(ctx context.Context, kind Kind, svid int, timestamp int64, reg region.Region) ([]models.OracleMessage, error) {
	start := time.Now()
	url := reg.BaseURL + c.uri(kind)

	type point struct {
		Timestamp int64 `json:"timestamp"`
	}
	request := struct {
		SatelliteID int     `json:"satellite_id"`
		Info        []point `json:"info"`
	}{SatelliteID: svid}
	for t := timestamp - c.cfg.Window; t <= timestamp+c.cfg.Window; t += c.cfg.WindowStep {
		if t == timestamp {
			continue
		}
		request.Info = append(request.Info, point{Timestamp: t})
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal window request: %w", err)
	}

	body, err := c.exchangeWithAuthRetry(ctx, reg, http.MethodPost, url, payload)
	if err != nil {
		metrics.OracleRequests.WithLabelValues("window", reg.Name, "error").Inc()
		return nil, err
	}

	var list models.OracleMessageList
	if err := json.Unmarshal(body, &list); err != nil {
		metrics.OracleRequests.WithLabelValues("window", reg.Name, "error").Inc()
		return nil, fmt.Errorf("%w: parse window response: %v", ErrUnavailable, err)
	}

	metrics.OracleRequestDuration.WithLabelValues("window", reg.Name).Observe(time.Since(start).Seconds())
	metrics.OracleRequests.WithLabelValues("window", reg.Name, "ok").Inc()
	return list.Info, nil
}

// exchangeWithAuthRetry performs one authenticated exchange; on a non-2xx
// status it refreshes the token and retries the same request exactly once.
// Identity errors propagate unchanged so credential failures stay fatal.
func (c *Client) exchangeWithAuthRetry(ctx context.Context, reg region.Region, method, url string, payload []byte) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	status, body, err := c.exchange(ctx, reg, method, url, payload, token)
	if err != nil {
		return nil, err
	}
	if status >= 200 && status < 300 {
		return body, nil
	}

	// Token presumed expired; fetch a fresh one and retry once. Not a loop.
	logging.Warn().Int("status", status).Str("url", url).Str("region", reg.Name).
		Msg("oracle rejected request, refreshing token")
	metrics.OracleRequests.WithLabelValues(methodLabel(method), reg.Name, "auth_retry").Inc()

	token, err = c.tokens.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	status, body, err = c.exchange(ctx, reg, method, url, payload, token)
	if err != nil {
		return nil, err
	}
	if status >= 200 && status < 300 {
		return body, nil
	}
	return nil, fmt.Errorf("%w: status %d after token refresh", ErrUnavailable, status)
}

// methodLabel maps the HTTP method to the metrics operation label.
func methodLabel(method string) string {
	if method == http.MethodGet {
		return "single"
	}
	return "window"
}

// exchange performs one rate-limited, circuit-broken HTTP exchange.
// Transport failures count against the region's breaker; HTTP error
// statuses do not (they are the auth-retry signal, handled by the caller).
func (c *Client) exchange(ctx context.Context, reg region.Region, method, url string, payload []byte, token string) (int, []byte, error) {
	state := c.regions[reg.Name]
	if state == nil {
		return 0, nil, fmt.Errorf("%w: unknown region %q", ErrUnavailable, reg.Name)
	}

	if err := state.wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	result, err := state.execute(func() (*exchangeResult, error) {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close() //nolint:errcheck // best-effort close on read path

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, err
		}
		return &exchangeResult{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		logging.Error().Err(err).Str("url", url).Str("region", reg.Name).
			Msg("oracle exchange failed")
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result.status, result.body, nil
}

// exchangeResult carries one HTTP exchange outcome through the breaker.
type exchangeResult struct {
	status int
	body   []byte
}
