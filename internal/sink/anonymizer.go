// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package sink

import (
	"context"
	"fmt"
	"net/http"

	"github.com/veriloc/veriloc/internal/config"
	"github.com/veriloc/veriloc/internal/metrics"
	"github.com/veriloc/veriloc/internal/models"
)

// Anonymizer delivers verified feeds, raw signals already stripped, to the
// anonymized-data store. Unlike accounting, delivery failures are returned:
// the synchronous test paths surface them, the background store paths log
// them.
type Anonymizer struct {
	cfg    config.AnonymizerConfig
	client *http.Client
}

// NewAnonymizer constructs the anonymized-data store client.
func NewAnonymizer(cfg config.AnonymizerConfig) *Anonymizer {
	return &Anonymizer{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Close releases the underlying connections.
func (a *Anonymizer) Close() {
	a.client.CloseIdleConnections()
}

// StoreUser delivers one verified trip.
func (a *Anonymizer) StoreUser(ctx context.Context, feed *models.UserFeedStored) error {
	url := a.cfg.BaseURL + a.cfg.StoreUserURI
	if _, err := postJSON(ctx, a.client, url, feed); err != nil {
		metrics.SinkDeliveries.WithLabelValues("anonymizer", "error").Inc()
		return fmt.Errorf("store user feed: %w", err)
	}
	metrics.SinkDeliveries.WithLabelValues("anonymizer", "ok").Inc()
	return nil
}

// StoreIoT delivers one verified observation.
func (a *Anonymizer) StoreIoT(ctx context.Context, obs *models.IoTOutput) error {
	url := a.cfg.BaseURL + a.cfg.StoreIoTURI
	if _, err := postJSON(ctx, a.client, url, obs); err != nil {
		metrics.SinkDeliveries.WithLabelValues("anonymizer", "error").Inc()
		return fmt.Errorf("store iot observation: %w", err)
	}
	metrics.SinkDeliveries.WithLabelValues("anonymizer", "ok").Inc()
	return nil
}
