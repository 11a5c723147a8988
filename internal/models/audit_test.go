// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchVerdict(t *testing.T) {
	tests := []struct {
		name     string
		counters BatchCounters
		want     Authenticity
	}{
		{"any contradiction condemns", BatchCounters{Checked: 3, Authentic: 2, NotAuthentic: 1}, NotAuthentic},
		{"confirmed without contradiction", BatchCounters{Checked: 3, Authentic: 1, Unknown: 2}, Authentic},
		{"nothing confirmed", BatchCounters{Checked: 2, Unknown: 2}, Unknown},
		{"empty batch", BatchCounters{}, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.counters.Verdict())
		})
	}
}

func TestBatchCountersAdd(t *testing.T) {
	c := BatchCounters{Checked: 2, Authentic: 2}
	c.Add(BatchCounters{Checked: 3, Authentic: 1, NotAuthentic: 1, Unknown: 1})

	assert.Equal(t, BatchCounters{Checked: 5, Authentic: 3, NotAuthentic: 1, Unknown: 1}, c)
}

func TestAuditEnvelopeWireFormat(t *testing.T) {
	rec := &AuditRecord{
		SourceApp: "ApesMobility",
		ClientID:  "get_token_client",
		UserID:    "goeasy_bq_library",
		MsgID:     "4c9f",
		MsgSize:   2048,
		MsgTime:   time.UnixMilli(1700000000000).UTC(),
		Counters:  BatchCounters{Checked: 5, Authentic: 3, NotAuthentic: 1, Unknown: 1},
		Error:     false,
	}

	payload, err := json.Marshal(rec.Envelope())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(payload, &got))

	assert.Equal(t, "ApesMobility", got["target"])
	assert.Equal(t, true, got["private"])

	appObj, ok := got["data"].(map[string]any)["AppObj"].(map[string]any)
	require.True(t, ok, "data.AppObj missing")
	assert.Equal(t, "get_token_client", appObj["client_id"])
	assert.Equal(t, "goeasy_bq_library", appObj["user_id"])
	assert.Equal(t, float64(1700000000000), appObj["msg_time"])
	assert.Equal(t, float64(1), appObj["msg_malicious_position"])
	assert.Equal(t, float64(3), appObj["msg_authenticated_position"])
	assert.Equal(t, float64(1), appObj["msg_unknown_position"])
	assert.Equal(t, float64(5), appObj["msg_total_position"])
	assert.Equal(t, false, appObj["msg_error"])
}

func TestAuthenticityWireValues(t *testing.T) {
	payload, err := json.Marshal([]Authenticity{Authentic, NotAuthentic, Unknown})
	require.NoError(t, err)
	assert.JSONEq(t, `[1,0,-1]`, string(payload))

	assert.Equal(t, "authentic", Authentic.String())
	assert.Equal(t, "not_authentic", NotAuthentic.String())
	assert.Equal(t, "unknown", Unknown.String())
}
