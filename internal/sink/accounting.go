// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package sink

import (
	"context"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/veriloc/veriloc/internal/config"
	"github.com/veriloc/veriloc/internal/logging"
	"github.com/veriloc/veriloc/internal/metrics"
	"github.com/veriloc/veriloc/internal/models"
)

// Accounting delivers audit records to the accounting service.
//
// Delivery is strictly best-effort: accounting must never affect the
// verification outcome, so failures are logged and swallowed. The short
// client timeout keeps a slow accounting service from holding batch
// pipelines open.
type Accounting struct {
	cfg    config.AccountingConfig
	client *http.Client
}

// NewAccounting constructs the accounting client.
func NewAccounting(cfg config.AccountingConfig) *Accounting {
	return &Accounting{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Close releases the underlying connections.
func (a *Accounting) Close() {
	a.client.CloseIdleConnections()
}

// Record delivers one audit record. Never returns an error.
func (a *Accounting) Record(ctx context.Context, rec *models.AuditRecord) {
	url := a.cfg.BaseURL + a.cfg.URI
	if _, err := postJSON(ctx, a.client, url, rec.Envelope()); err != nil {
		metrics.SinkDeliveries.WithLabelValues("accounting", "error").Inc()
		logging.Warn().Err(err).Str("msg_id", rec.MsgID).Str("source_app", rec.SourceApp).
			Msg("accounting delivery failed")
		return
	}
	metrics.SinkDeliveries.WithLabelValues("accounting", "ok").Inc()
}

// ExtractUser fetches the accounting history kept for one source app. The
// accounting service serves reads and writes on the same URI; reads select
// the app through the user query parameter.
func (a *Accounting) ExtractUser(ctx context.Context, sourceApp string) (json.RawMessage, error) {
	endpoint := a.cfg.BaseURL + a.cfg.URI + "?user=" + url.QueryEscape(sourceApp)
	body, err := getJSON(ctx, a.client, endpoint)
	if err != nil {
		metrics.SinkDeliveries.WithLabelValues("accounting", "error").Inc()
		return nil, err
	}
	metrics.SinkDeliveries.WithLabelValues("accounting", "ok").Inc()
	return body, nil
}
