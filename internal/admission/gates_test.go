// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/veriloc/veriloc/internal/config"
)

func testGates() *Gates {
	return New(config.AdmissionConfig{
		UserStore: 2,
		UserTest:  1,
		IoTStore:  1,
		IoTTest:   1,
		Auth:      1,
		ProbeWait: 30 * time.Millisecond,
	})
}

func TestAdmitWithinCapacity(t *testing.T) {
	g := testGates()

	r1, err := g.Admit(context.Background(), FeedUser, OpStore)
	if err != nil {
		t.Fatalf("Admit 1: %v", err)
	}
	r2, err := g.Admit(context.Background(), FeedUser, OpStore)
	if err != nil {
		t.Fatalf("Admit 2: %v", err)
	}
	r1()
	r2()
}

func TestAdmitSaturation(t *testing.T) {
	g := testGates()

	release, err := g.Admit(context.Background(), FeedUser, OpTest)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}

	start := time.Now()
	_, err = g.Admit(context.Background(), FeedUser, OpTest)
	if !errors.Is(err, ErrSaturated) {
		t.Fatalf("err = %v, want ErrSaturated", err)
	}
	if waited := time.Since(start); waited < 25*time.Millisecond {
		t.Errorf("rejection after %v, want at least the probe wait", waited)
	}

	// A released slot admits the next submission.
	release()
	release2, err := g.Admit(context.Background(), FeedUser, OpTest)
	if err != nil {
		t.Fatalf("Admit after release: %v", err)
	}
	release2()
}

func TestAdmitGatesAreIndependent(t *testing.T) {
	g := testGates()

	release, err := g.Admit(context.Background(), FeedUser, OpTest)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	defer release()

	// Saturating user/test must not affect iot/test.
	releaseIoT, err := g.Admit(context.Background(), FeedIoT, OpTest)
	if err != nil {
		t.Fatalf("Admit iot: %v", err)
	}
	releaseIoT()
}

func TestAdmitUnknownGate(t *testing.T) {
	g := testGates()
	if _, err := g.Admit(context.Background(), Feed("batch"), OpStore); err == nil {
		t.Fatal("expected error for unknown gate")
	}
}

func TestAuthenticateQueuesUntilCancelled(t *testing.T) {
	g := testGates()

	release, err := g.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Authenticate(ctx); err == nil {
		t.Fatal("expected error once the context expires")
	}

	release()
	release2, err := g.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate after release: %v", err)
	}
	release2()
}
