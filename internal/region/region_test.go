// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package region

import (
	"testing"

	"github.com/veriloc/veriloc/internal/config"
)

func TestClassifierNearest(t *testing.T) {
	c, err := NewClassifier([]config.RegionConfig{
		{Name: "turin", BaseURL: "http://turin", Latitude: 45.07, Longitude: 7.69},
		{Name: "athens", BaseURL: "http://athens", Latitude: 37.98, Longitude: 23.73},
	})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	tests := []struct {
		name     string
		lat, lon float64
		want     string
	}{
		{"milan goes to turin", 45.46, 9.19, "turin"},
		{"thessaloniki goes to athens", 40.64, 22.94, "athens"},
		{"exactly on turin", 45.07, 7.69, "turin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.lat, tt.lon); got.Name != tt.want {
				t.Errorf("Classify(%v, %v) = %q, want %q", tt.lat, tt.lon, got.Name, tt.want)
			}
		})
	}
}

func TestClassifierTieGoesToFirst(t *testing.T) {
	c, err := NewClassifier([]config.RegionConfig{
		{Name: "first", BaseURL: "http://first", Latitude: 10, Longitude: 10},
		{Name: "second", BaseURL: "http://second", Latitude: 10, Longitude: 10},
	})
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	if got := c.Classify(10, 10); got.Name != "first" {
		t.Errorf("tie resolved to %q, want first", got.Name)
	}
}

func TestClassifierRequiresRegions(t *testing.T) {
	if _, err := NewClassifier(nil); err == nil {
		t.Fatal("expected error for empty region list")
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Turin to Athens is roughly 1480 km.
	d := haversineKm(45.07, 7.69, 37.98, 23.73)
	if d < 1400 || d > 1560 {
		t.Errorf("haversineKm = %v, want ~1480", d)
	}
}
