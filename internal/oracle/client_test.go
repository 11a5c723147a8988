// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package oracle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/veriloc/veriloc/internal/config"
	"github.com/veriloc/veriloc/internal/region"
)

// staticTokens is a TokenSource whose Refresh hands out a second token.
type staticTokens struct {
	refreshes atomic.Int32
}

func (s *staticTokens) Token(context.Context) (string, error) { return "stale-token", nil }

func (s *staticTokens) Refresh(context.Context) (string, error) {
	s.refreshes.Add(1)
	return "fresh-token", nil
}

func testOracleConfig() config.OracleConfig {
	return config.OracleConfig{
		GalileoURI: "/api/v1/galileo/message",
		MessageURI: "/api/v1/ublox/message",
		Window:     4000,
		WindowStep: 2000,
		Timeout:    5 * time.Second,
	}
}

// newOracleEnv builds a client pointed at the given handler as its only
// region.
func newOracleEnv(t *testing.T, handler http.Handler) (*Client, region.Region, *staticTokens) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	classifier, err := region.NewClassifier([]config.RegionConfig{
		{Name: "turin", BaseURL: srv.URL, Latitude: 45.07, Longitude: 7.69},
	})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	regions := classifier.Regions()

	tokens := &staticTokens{}
	client := New(testOracleConfig(), tokens, regions)
	t.Cleanup(client.Close)
	return client, regions[0], tokens
}

func TestFetchSingle(t *testing.T) {
	client, reg, tokens := newOracleEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/galileo/message/12/1700000000000" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer stale-token" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"timestamp":1700000000000,"raw_data":"aabbcc"}`)
	}))

	raw, err := client.FetchSingle(context.Background(), KindGalileo, 12, 1700000000000, reg)
	if err != nil {
		t.Fatalf("FetchSingle: %v", err)
	}
	if raw == nil || *raw != "aabbcc" {
		t.Errorf("raw = %v, want aabbcc", raw)
	}
	if tokens.refreshes.Load() != 0 {
		t.Error("refresh must not run on a successful exchange")
	}
}

func TestFetchSingleNoRecord(t *testing.T) {
	client, reg, _ := newOracleEnv(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"timestamp":1700000000000,"raw_data":null}`)
	}))

	raw, err := client.FetchSingle(context.Background(), KindGalileo, 12, 1700000000000, reg)
	if err != nil {
		t.Fatalf("FetchSingle: %v", err)
	}
	if raw != nil {
		t.Errorf("raw = %v, want nil for an absent oracle record", *raw)
	}
}

func TestFetchSingleAuthRetry(t *testing.T) {
	client, reg, tokens := newOracleEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"timestamp":1,"raw_data":"ddeeff"}`)
	}))

	raw, err := client.FetchSingle(context.Background(), KindGalileo, 5, 1, reg)
	if err != nil {
		t.Fatalf("FetchSingle: %v", err)
	}
	if raw == nil || *raw != "ddeeff" {
		t.Errorf("raw = %v, want ddeeff after token refresh", raw)
	}
	if got := tokens.refreshes.Load(); got != 1 {
		t.Errorf("refreshes = %d, want exactly 1", got)
	}
}

func TestFetchSingleRetriesExactlyOnce(t *testing.T) {
	var hits atomic.Int32
	client, reg, tokens := newOracleEnv(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.FetchSingle(context.Background(), KindGalileo, 5, 1, reg)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("oracle hits = %d, want 2 (original + single retry)", got)
	}
	if got := tokens.refreshes.Load(); got != 1 {
		t.Errorf("refreshes = %d, want 1", got)
	}
}

func TestFetchWindowRequestShape(t *testing.T) {
	const center = int64(1700000000000)

	client, reg, _ := newOracleEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/v1/ublox/message" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var req struct {
			SatelliteID int `json:"satellite_id"`
			Info        []struct {
				Timestamp int64 `json:"timestamp"`
			} `json:"info"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode window request: %v", err)
		}
		if req.SatelliteID != 21 {
			t.Errorf("satellite_id = %d, want 21", req.SatelliteID)
		}
		// Window 4000 step 2000: t-4000, t-2000, t+2000, t+4000 (t excluded).
		want := []int64{center - 4000, center - 2000, center + 2000, center + 4000}
		if len(req.Info) != len(want) {
			t.Fatalf("info length = %d, want %d", len(req.Info), len(want))
		}
		for i, p := range req.Info {
			if p.Timestamp != want[i] {
				t.Errorf("info[%d] = %d, want %d", i, p.Timestamp, want[i])
			}
			if p.Timestamp == center {
				t.Error("window must exclude the exact timestamp")
			}
		}

		io.WriteString(w, `{"satellite_id":21,"info":[{"timestamp":1699999998000,"raw_data":"aa"},{"timestamp":1700000002000,"raw_data":null}]}`)
	}))

	window, err := client.FetchWindow(context.Background(), KindMessage, 21, center, reg)
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("window length = %d, want 2", len(window))
	}
	if window[0].RawData == nil || *window[0].RawData != "aa" {
		t.Errorf("window[0].RawData = %v, want aa", window[0].RawData)
	}
	if window[1].RawData != nil {
		t.Error("window[1].RawData must stay nil")
	}
}

func TestUnknownRegion(t *testing.T) {
	client, _, _ := newOracleEnv(t, http.NotFoundHandler())

	_, err := client.FetchSingle(context.Background(), KindGalileo, 1, 1, region.Region{Name: "nowhere"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable for unknown region", err)
	}
}
