// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

// Package region classifies a position into exactly one of the configured
// oracle regions. The oracle is deployed per region; every lookup for a
// position goes to the deployment nearest to it.
package region

import (
	"fmt"
	"math"

	"github.com/veriloc/veriloc/internal/config"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Region is one configured oracle deployment.
type Region struct {
	Name    string
	BaseURL string
	lat     float64
	lon     float64
}

// Classifier maps positions to the nearest configured region.
type Classifier struct {
	regions []Region
}

// NewClassifier builds a classifier from the configured regions.
// At least one region is required.
func NewClassifier(cfgs []config.RegionConfig) (*Classifier, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("at least one oracle region must be configured")
	}
	regions := make([]Region, len(cfgs))
	for i, c := range cfgs {
		regions[i] = Region{
			Name:    c.Name,
			BaseURL: c.BaseURL,
			lat:     c.Latitude,
			lon:     c.Longitude,
		}
	}
	return &Classifier{regions: regions}, nil
}

// Classify returns the region whose reference coordinate is nearest to
// (lat, lon) by great-circle distance. Ties resolve to the first configured
// region, keeping classification deterministic.
func (c *Classifier) Classify(lat, lon float64) Region {
	best := c.regions[0]
	bestDist := haversineKm(lat, lon, best.lat, best.lon)
	for _, r := range c.regions[1:] {
		if d := haversineKm(lat, lon, r.lat, r.lon); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best
}

// Regions returns the configured regions in configuration order.
func (c *Classifier) Regions() []Region {
	return c.regions
}

// haversineKm computes the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
