// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package models

import "time"

// BatchCounters accumulates classification tallies across a batch. Counts
// are per signal fix examined, not per position: a position whose raw
// signals never reach the oracle (no auth data, meaconing pre-check)
// contributes nothing.
type BatchCounters struct {
	Checked      int
	Authentic    int
	NotAuthentic int
	Unknown      int
}

// Add accumulates another set of tallies.
func (c *BatchCounters) Add(other BatchCounters) {
	c.Checked += other.Checked
	c.Authentic += other.Authentic
	c.NotAuthentic += other.NotAuthentic
	c.Unknown += other.Unknown
}

// Verdict derives the batch-level classification: any contradicted fix makes
// the batch NotAuthentic; otherwise any confirmed fix makes it Authentic;
// otherwise Unknown.
func (c BatchCounters) Verdict() Authenticity {
	switch {
	case c.NotAuthentic > 0:
		return NotAuthentic
	case c.Authentic > 0:
		return Authentic
	default:
		return Unknown
	}
}

// AuditRecord is the accounting entry emitted exactly once per batch
// attempt, success or failure.
type AuditRecord struct {
	SourceApp        string
	ClientID         string
	UserID           string
	MsgID            string
	MsgSize          int
	MsgTime          time.Time
	Counters         BatchCounters
	Error            bool
	ErrorDescription string
}

// auditPayload is the AppObj body of the accounting envelope.
type auditPayload struct {
	ClientID             string `json:"client_id"`
	UserID               string `json:"user_id"`
	MsgID                string `json:"msg_id"`
	MsgSize              int    `json:"msg_size"`
	MsgTime              int64  `json:"msg_time"`
	MsgMaliciousPosition int    `json:"msg_malicious_position"`
	MsgAuthPosition      int    `json:"msg_authenticated_position"`
	MsgUnknownPosition   int    `json:"msg_unknown_position"`
	MsgTotalPosition     int    `json:"msg_total_position"`
	MsgError             bool   `json:"msg_error"`
	MsgErrorDescription  string `json:"msg_error_description"`
}

// AuditEnvelope is the accounting sink's wire format.
type AuditEnvelope struct {
	Target string `json:"target"`
	Data   struct {
		AppObj auditPayload `json:"AppObj"`
	} `json:"data"`
	Private bool `json:"private"`
}

// Envelope wraps the record in the accounting sink's wire format.
func (r *AuditRecord) Envelope() *AuditEnvelope {
	env := &AuditEnvelope{
		Target:  r.SourceApp,
		Private: true,
	}
	env.Data.AppObj = auditPayload{
		ClientID:             r.ClientID,
		UserID:               r.UserID,
		MsgID:                r.MsgID,
		MsgSize:              r.MsgSize,
		MsgTime:              r.MsgTime.UnixMilli(),
		MsgMaliciousPosition: r.Counters.NotAuthentic,
		MsgAuthPosition:      r.Counters.Authentic,
		MsgUnknownPosition:   r.Counters.Unknown,
		MsgTotalPosition:     r.Counters.Checked,
		MsgError:             r.Error,
		MsgErrorDescription:  r.ErrorDescription,
	}
	return env
}

// Token is the identity-provider access token response.
type Token struct {
	AccessToken string `json:"access_token"`
}

// Requester identifies the authenticated feed client extracted from the
// inbound bearer token.
type Requester struct {
	Client string `json:"client"`
	User   string `json:"user"`
}
