// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package sink

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/veriloc/veriloc/internal/config"
	"github.com/veriloc/veriloc/internal/metrics"
	"github.com/veriloc/veriloc/internal/models"
)

// Anonengine is the legacy anonymizer client. Verified trips are stored in
// the legacy shape, and the journey read endpoints proxy its mobility and
// details extractions.
type Anonengine struct {
	cfg    config.AnonengineConfig
	client *http.Client
}

// NewAnonengine constructs the legacy anonymizer client.
func NewAnonengine(cfg config.AnonengineConfig) *Anonengine {
	return &Anonengine{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Close releases the underlying connections.
func (a *Anonengine) Close() {
	a.client.CloseIdleConnections()
}

// StoreTrip delivers one verified trip in the legacy shape.
func (a *Anonengine) StoreTrip(ctx context.Context, feed *models.UserFeedLegacy) error {
	url := a.cfg.BaseURL + a.cfg.StoreURI
	if _, err := postJSON(ctx, a.client, url, feed); err != nil {
		metrics.SinkDeliveries.WithLabelValues("anonengine", "error").Inc()
		return fmt.Errorf("store trip: %w", err)
	}
	metrics.SinkDeliveries.WithLabelValues("anonengine", "ok").Inc()
	return nil
}

// Mobility fetches the mobility extraction for a journey. The payload is
// passed through untouched.
func (a *Anonengine) Mobility(ctx context.Context, journeyID string) (json.RawMessage, error) {
	return a.proxy(ctx, a.cfg.MobilityURI, journeyID)
}

// Details fetches the details extraction for a journey.
func (a *Anonengine) Details(ctx context.Context, journeyID string) (json.RawMessage, error) {
	return a.proxy(ctx, a.cfg.DetailsURI, journeyID)
}

func (a *Anonengine) proxy(ctx context.Context, uri, journeyID string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s%s/%s", a.cfg.BaseURL, uri, journeyID)
	body, err := getJSON(ctx, a.client, url)
	if err != nil {
		metrics.SinkDeliveries.WithLabelValues("anonengine", "error").Inc()
		return nil, fmt.Errorf("journey %s: %w", journeyID, err)
	}
	metrics.SinkDeliveries.WithLabelValues("anonengine", "ok").Inc()
	return json.RawMessage(body), nil
}
