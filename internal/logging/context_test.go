// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "abc-123")
	if got := CorrelationIDFromContext(ctx); got != "abc-123" {
		t.Errorf("CorrelationIDFromContext = %q, want abc-123", got)
	}
}

func TestCorrelationIDMissing(t *testing.T) {
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("CorrelationIDFromContext = %q, want empty", got)
	}
}

func TestCtxLoggerEmitsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	ctx := ContextWithCorrelationID(context.Background(), "corr-42")
	Ctx(ctx).Warn().Msg("sink unreachable")

	out := buf.String()
	if !strings.Contains(out, `"correlation_id":"corr-42"`) {
		t.Errorf("log line %q missing correlation id", out)
	}
	if !strings.Contains(out, "sink unreachable") {
		t.Errorf("log line %q missing message", out)
	}
}

func TestGenerateCorrelationIDUnique(t *testing.T) {
	a, b := GenerateCorrelationID(), GenerateCorrelationID()
	if a == b {
		t.Error("correlation ids must be unique")
	}
	if len(a) != 36 {
		t.Errorf("correlation id %q is not a full UUID", a)
	}
}
