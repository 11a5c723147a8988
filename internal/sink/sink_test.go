// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package sink

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/veriloc/veriloc/internal/config"
	"github.com/veriloc/veriloc/internal/models"
)

func TestAccountingRecordDeliversEnvelope(t *testing.T) {
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounting" {
			t.Errorf("path = %q, want /accounting", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		bodies <- body
	}))
	defer srv.Close()

	a := NewAccounting(config.AccountingConfig{BaseURL: srv.URL, URI: "/accounting", Timeout: time.Second})
	defer a.Close()

	a.Record(context.Background(), &models.AuditRecord{
		SourceApp: "fleet-app",
		ClientID:  "fleet-client",
		MsgID:     "m1",
		MsgTime:   time.Now().UTC(),
		Counters:  models.BatchCounters{Checked: 1, Authentic: 1},
	})

	select {
	case body := <-bodies:
		var env models.AuditEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		if env.Target != "fleet-app" || !env.Private {
			t.Errorf("envelope = %+v, want target fleet-app and private=true", env)
		}
	case <-time.After(time.Second):
		t.Fatal("no accounting delivery")
	}
}

func TestAccountingRecordSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAccounting(config.AccountingConfig{BaseURL: srv.URL, URI: "/accounting", Timeout: time.Second})
	defer a.Close()

	// Must not panic or propagate anything.
	a.Record(context.Background(), &models.AuditRecord{MsgID: "m1", MsgTime: time.Now()})
}

func TestAccountingExtractUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/accounting" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.URL.Query().Get("user"); got != "ApesMobility" {
			t.Errorf("user param = %q, want ApesMobility", got)
		}
		io.WriteString(w, `{"records":[]}`)
	}))
	defer srv.Close()

	a := NewAccounting(config.AccountingConfig{BaseURL: srv.URL, URI: "/accounting", Timeout: time.Second})
	defer a.Close()

	payload, err := a.ExtractUser(context.Background(), "ApesMobility")
	if err != nil {
		t.Fatalf("ExtractUser: %v", err)
	}
	if string(payload) != `{"records":[]}` {
		t.Errorf("payload = %s, want passthrough body", payload)
	}
}

func TestAnonymizerStoreUserSurfacesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewAnonymizer(config.AnonymizerConfig{
		BaseURL: srv.URL, StoreUserURI: "/store/user", StoreIoTURI: "/store/iot", Timeout: time.Second,
	})
	defer a.Close()

	if err := a.StoreUser(context.Background(), &models.UserFeedStored{}); err == nil {
		t.Fatal("expected delivery error")
	}
}

func TestAnonengineProxiesJourneyReads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mobility/j-1":
			io.WriteString(w, `{"segments":[]}`)
		case "/details/j-1":
			io.WriteString(w, `{"positions":[]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	a := NewAnonengine(config.AnonengineConfig{
		BaseURL: srv.URL, StoreURI: "/store", MobilityURI: "/mobility", DetailsURI: "/details",
		Timeout: time.Second,
	})
	defer a.Close()

	mobility, err := a.Mobility(context.Background(), "j-1")
	if err != nil {
		t.Fatalf("Mobility: %v", err)
	}
	if string(mobility) != `{"segments":[]}` {
		t.Errorf("mobility = %s, want passthrough payload", mobility)
	}

	details, err := a.Details(context.Background(), "j-1")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if string(details) != `{"positions":[]}` {
		t.Errorf("details = %s, want passthrough payload", details)
	}

	if _, err := a.Mobility(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown journey")
	}
}
