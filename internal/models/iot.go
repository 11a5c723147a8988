// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Point is a GeoJSON-style position: [lat, lon].
type Point struct {
	Type       string    `json:"type"`
	Coordinate []float64 `json:"coordinate"`
}

// Lat returns the latitude component.
func (p Point) Lat() float64 { return p.Coordinate[0] }

// Lon returns the longitude component.
func (p Point) Lon() float64 { return p.Coordinate[1] }

// validate checks the Point shape after unmarshaling.
func (p Point) validate() error {
	if p.Type != "Point" {
		return fmt.Errorf(`point type must be "Point", got %q`, p.Type)
	}
	if len(p.Coordinate) != 2 {
		return fmt.Errorf("point coordinate must have 2 elements, got %d", len(p.Coordinate))
	}
	return nil
}

// IoTResult is the measurement part of an observation. The measurement
// response itself is opaque to the gateway.
type IoTResult struct {
	ValueType string          `json:"valueType"`
	Position  Point           `json:"Position"`
	Response  json.RawMessage `json:"response"`
}

// IoTResultInput extends IoTResult with the raw GNSS stream to verify.
type IoTResultInput struct {
	IoTResult
	GNSS GNSSStream `json:"gnss"`
}

// IoTResultOutput replaces the raw stream with the computed verdict.
type IoTResultOutput struct {
	IoTResult
	Authenticity Authenticity `json:"authenticity"`
}

// IoTObservation is a submitted OGC SensorThings observation carrying one
// position and its raw Galileo navigation stream.
type IoTObservation struct {
	ResultTime        time.Time       `json:"resultTime"`
	Datastream        json.RawMessage `json:"Datastream"`
	FeatureOfInterest json.RawMessage `json:"FeatureOfInterest"`
	PhenomenonTime    time.Time       `json:"phenomenonTime"`
	Result            IoTResultInput  `json:"result"`
}

// Validate checks the observation invariants that JSON decoding alone does
// not enforce.
func (o *IoTObservation) Validate() error {
	if err := o.Result.Position.validate(); err != nil {
		return err
	}
	if len(o.Result.GNSS) == 0 {
		return fmt.Errorf("observation carries no gnss frames")
	}
	return nil
}

// CaptureMillis returns the phenomenon time as a Unix timestamp in
// milliseconds, the unit the oracle is keyed by.
func (o *IoTObservation) CaptureMillis() int64 {
	return o.PhenomenonTime.UnixMilli()
}

// IoTOutput is the verified observation: input shape minus the raw stream,
// plus the verdict and the correlation id assigned on acceptance.
type IoTOutput struct {
	ResultTime        time.Time       `json:"resultTime"`
	Datastream        json.RawMessage `json:"Datastream"`
	FeatureOfInterest json.RawMessage `json:"FeatureOfInterest"`
	PhenomenonTime    time.Time       `json:"phenomenonTime"`
	Result            IoTResultOutput `json:"result"`
	ObservationID     string          `json:"observation_id"`
}

// ToOutput builds the verified output for an observation.
func (o *IoTObservation) ToOutput(verdict Authenticity, observationID string) *IoTOutput {
	return &IoTOutput{
		ResultTime:        o.ResultTime,
		Datastream:        o.Datastream,
		FeatureOfInterest: o.FeatureOfInterest,
		PhenomenonTime:    o.PhenomenonTime,
		Result: IoTResultOutput{
			IoTResult:    o.Result.IoTResult,
			Authenticity: verdict,
		},
		ObservationID: observationID,
	}
}
