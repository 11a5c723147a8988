// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

// Package identity maintains the bearer token used to authenticate against
// the verification oracle.
//
// The token is fetched from the identity provider (Keycloak) and cached for
// a configured staleness window (150 s by default; provider tokens live
// 300 s, so half the lifetime). The refresh protocol guarantees at most one
// in-flight request to the provider: callers that find the token stale while
// a refresh is running wait for it and then read the refreshed token; they
// never start a duplicate refresh.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/veriloc/veriloc/internal/config"
	"github.com/veriloc/veriloc/internal/logging"
	"github.com/veriloc/veriloc/internal/metrics"
	"github.com/veriloc/veriloc/internal/models"
)

var (
	// ErrBadCredentials means the identity provider rejected the configured
	// client credentials. Fatal: never retried automatically.
	ErrBadCredentials = errors.New("identity provider rejected credentials")

	// ErrUnavailable means the identity provider could not be reached or
	// timed out. The caller decides whether to retry or abort.
	ErrUnavailable = errors.New("identity provider unavailable")
)

// cachedToken is the immutable snapshot swapped atomically on refresh.
type cachedToken struct {
	token     string
	fetchedAt time.Time
}

// Manager is the process-wide credential cache. Construct one at startup
// with New, call Setup before first use and Close at shutdown.
type Manager struct {
	cfg    config.IdentityConfig
	client *http.Client

	// cached is read lock-free on the fast path.
	cached atomic.Pointer[cachedToken]

	// refreshMu serializes refreshes. A goroutine that acquires it re-checks
	// freshness first: if another holder already refreshed while it waited,
	// it returns the cached token instead of fetching again.
	refreshMu sync.Mutex

	// now is stubbed in tests.
	now func() time.Time
}

// New constructs an uninitialized Manager. Setup must be called before
// Token.
func New(cfg config.IdentityConfig) *Manager {
	return &Manager{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		now: time.Now,
	}
}

// Setup performs the initial token fetch. Call once at process startup;
// a gateway that cannot authenticate against the oracle must not serve
// feeds.
func (m *Manager) Setup(ctx context.Context) error {
	token, err := m.fetch(ctx)
	if err != nil {
		return fmt.Errorf("initial token fetch: %w", err)
	}
	m.cached.Store(&cachedToken{token: token, fetchedAt: m.now()})
	return nil
}

// Close releases the underlying connections.
func (m *Manager) Close() {
	m.client.CloseIdleConnections()
}

// Token returns a bearer token for the oracle.
//
// Fast path: the cached token is younger than the staleness window and is
// returned without locking. Slow path: the caller competes for the refresh
// lock; exactly one caller fetches, the rest observe its result.
func (m *Manager) Token(ctx context.Context) (string, error) {
	if c := m.cached.Load(); c != nil && m.now().Sub(c.fetchedAt) < m.cfg.TokenStaleness {
		return c.token, nil
	}

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	// Double-check under the lock: the previous holder may have refreshed
	// while this caller was blocked.
	if c := m.cached.Load(); c != nil && m.now().Sub(c.fetchedAt) < m.cfg.TokenStaleness {
		return c.token, nil
	}

	return m.refreshLocked(ctx)
}

// Refresh forces a token fetch regardless of staleness. The oracle client
// calls this when the oracle reports an expired token before the staleness
// window has elapsed (provider-side invalidation).
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	return m.refreshLocked(ctx)
}

// refreshLocked fetches and stores a new token. refreshMu must be held.
func (m *Manager) refreshLocked(ctx context.Context) (string, error) {
	token, err := m.fetch(ctx)
	if err != nil {
		return "", err
	}
	m.cached.Store(&cachedToken{token: token, fetchedAt: m.now()})
	return token, nil
}

// fetch performs the password-grant request against the identity provider.
func (m *Manager) fetch(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id":     {m.cfg.ClientID},
		"username":      {m.cfg.Username},
		"password":      {m.cfg.Password},
		"grant_type":    {m.cfg.GrantType},
		"client_secret": {m.cfg.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("unavailable").Inc()
		logging.Warn().Err(err).Str("url", m.cfg.TokenURL).
			Msg("identity provider unreachable")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read path

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fallthrough to parse
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		metrics.TokenRefreshes.WithLabelValues("unauthorized").Inc()
		logging.Error().Int("status", resp.StatusCode).
			Str("url", m.cfg.TokenURL).
			Str("client_id", m.cfg.ClientID).
			Str("username", m.cfg.Username).
			Msg("identity provider rejected credentials")
		return "", fmt.Errorf("%w: status %d", ErrBadCredentials, resp.StatusCode)
	default:
		metrics.TokenRefreshes.WithLabelValues("unavailable").Inc()
		logging.Warn().Int("status", resp.StatusCode).Str("url", m.cfg.TokenURL).
			Msg("identity provider error")
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("unavailable").Inc()
		return "", fmt.Errorf("%w: read token response: %v", ErrUnavailable, err)
	}

	var token models.Token
	if err := json.Unmarshal(body, &token); err != nil {
		metrics.TokenRefreshes.WithLabelValues("unavailable").Inc()
		return "", fmt.Errorf("%w: parse token response: %v", ErrUnavailable, err)
	}
	if token.AccessToken == "" {
		metrics.TokenRefreshes.WithLabelValues("unavailable").Inc()
		return "", fmt.Errorf("%w: empty access token", ErrUnavailable)
	}

	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	return token.AccessToken, nil
}
