// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package models

import "github.com/goccy/go-json"

// TrackSegment is one mobility segment of a journey (start/end positions
// are carried opaquely; the gateway never inspects them).
type TrackSegment struct {
	Meters int             `json:"meters"`
	Type   string          `json:"type"`
	Start  json.RawMessage `json:"start,omitempty"`
	End    json.RawMessage `json:"end,omitempty"`
}

// Behaviour groups the three mobility-type detections attached to a trip.
type Behaviour struct {
	AppDefined  []TrackSegment `json:"app_defined"`
	TpvDefined  []TrackSegment `json:"tpv_defined"`
	UserDefined []TrackSegment `json:"user_defined"`
}

// SensorInformation is one sensor sample; the measurement object differs per
// sensor type and is passed through untouched.
type SensorInformation struct {
	Data json.RawMessage `json:"data"`
	Name string          `json:"name"`
	// Time is the UTC sample timestamp in milliseconds.
	Time int64 `json:"time"`
}

// PositionRecord is one reported geographic fix of a trip. Authenticity is
// mutated in place by the reconciliation engine; everything else is
// immutable once parsed.
type PositionRecord struct {
	Authenticity    Authenticity  `json:"authenticity"`
	Lat             float64       `json:"lat"`
	Lon             float64       `json:"lon"`
	PartialDistance int           `json:"partialDistance"`
	// Time is the UTC capture timestamp in milliseconds.
	Time        int64         `json:"time"`
	GalileoAuth []GalileoAuth `json:"galileo_auth"`
}

// UserFeed is a submitted trip: journey metadata plus the ordered trace of
// position records to verify.
type UserFeed struct {
	Behaviour       Behaviour           `json:"behaviour"`
	CompanyCode     string              `json:"company_code"`
	CompanyTripType string              `json:"company_trip_type"`
	Distance        int                 `json:"distance"`
	ElapsedTime     string              `json:"elapsedTime"`
	EndDate         int64               `json:"endDate"`
	ID              string              `json:"id"`
	MainTypeSpace   string              `json:"mainTypeSpace"`
	MainTypeTime    string              `json:"mainTypeTime"`
	StartDate       int64               `json:"startDate"`
	Sensors         []SensorInformation `json:"sensors_information"`
	Trace           []PositionRecord    `json:"trace_information"`
}

// ResetClassifications marks every position Unknown before verification.
// Client-supplied classifications are never trusted.
func (u *UserFeed) ResetClassifications() {
	for i := range u.Trace {
		u.Trace[i].Authenticity = Unknown
	}
}

// PositionOutput is the anonymized form of a PositionRecord: verdict and
// coordinates only, raw signals stripped.
type PositionOutput struct {
	Authenticity    Authenticity `json:"authenticity"`
	Lat             float64      `json:"lat"`
	Lon             float64      `json:"lon"`
	PartialDistance int          `json:"partialDistance"`
	Time            int64        `json:"time"`
}

// UserFeedStored is the verified trip as delivered to the anonymized-data
// store: the input shape minus raw signals, plus attribution.
type UserFeedStored struct {
	Behaviour       Behaviour           `json:"behaviour"`
	CompanyCode     string              `json:"company_code"`
	CompanyTripType string              `json:"company_trip_type"`
	Distance        int                 `json:"distance"`
	ElapsedTime     string              `json:"elapsedTime"`
	EndDate         int64               `json:"endDate"`
	ID              string              `json:"id"`
	MainTypeSpace   string              `json:"mainTypeSpace"`
	MainTypeTime    string              `json:"mainTypeTime"`
	StartDate       int64               `json:"startDate"`
	Sensors         []SensorInformation `json:"sensors_information"`
	Trace           []PositionOutput    `json:"trace_information"`
	SourceApp       string              `json:"source_app"`
	JourneyID       string              `json:"journey_id"`
}

// UserFeedLegacy is the verified trip reshaped for the legacy anonymizer.
type UserFeedLegacy struct {
	AppDefinedBehaviour  []TrackSegment      `json:"app_defined_behaviour"`
	TpvDefinedBehaviour  []TrackSegment      `json:"tpv_defined_behaviour"`
	UserDefinedBehaviour []TrackSegment      `json:"user_defined_behaviour"`
	CompanyCode          string              `json:"company_code"`
	CompanyTripType      string              `json:"company_trip_type"`
	DeviceID             string              `json:"deviceId"`
	JourneyID            string              `json:"journeyId"`
	StartDate            int64               `json:"startDate"`
	EndDate              int64               `json:"endDate"`
	Distance             int                 `json:"distance"`
	ElapsedTime          string              `json:"elapsedTime"`
	Positions            []PositionOutput    `json:"positions"`
	Sensors              []SensorInformation `json:"sensors"`
	MainTypeSpace        string              `json:"mainTypeSpace"`
	MainTypeTime         string              `json:"mainTypeTime"`
	SourceApp            string              `json:"sourceApp"`
}

// StripPositions converts the verified trace to its anonymized output form.
func StripPositions(trace []PositionRecord) []PositionOutput {
	out := make([]PositionOutput, len(trace))
	for i, p := range trace {
		out[i] = PositionOutput{
			Authenticity:    p.Authenticity,
			Lat:             p.Lat,
			Lon:             p.Lon,
			PartialDistance: p.PartialDistance,
			Time:            p.Time,
		}
	}
	return out
}

// ToStored builds the anonymized-store form of a verified trip.
func (u *UserFeed) ToStored(sourceApp, journeyID string) *UserFeedStored {
	return &UserFeedStored{
		Behaviour:       u.Behaviour,
		CompanyCode:     u.CompanyCode,
		CompanyTripType: u.CompanyTripType,
		Distance:        u.Distance,
		ElapsedTime:     u.ElapsedTime,
		EndDate:         u.EndDate,
		ID:              u.ID,
		MainTypeSpace:   u.MainTypeSpace,
		MainTypeTime:    u.MainTypeTime,
		StartDate:       u.StartDate,
		Sensors:         u.Sensors,
		Trace:           StripPositions(u.Trace),
		SourceApp:       sourceApp,
		JourneyID:       journeyID,
	}
}

// ToLegacy builds the legacy-anonymizer form of a verified trip.
func (u *UserFeed) ToLegacy(sourceApp, journeyID string) *UserFeedLegacy {
	return &UserFeedLegacy{
		AppDefinedBehaviour:  u.Behaviour.AppDefined,
		TpvDefinedBehaviour:  u.Behaviour.TpvDefined,
		UserDefinedBehaviour: u.Behaviour.UserDefined,
		CompanyCode:          u.CompanyCode,
		CompanyTripType:      u.CompanyTripType,
		DeviceID:             u.ID,
		JourneyID:            journeyID,
		StartDate:            u.StartDate,
		EndDate:              u.EndDate,
		Distance:             u.Distance,
		ElapsedTime:          u.ElapsedTime,
		Positions:            StripPositions(u.Trace),
		Sensors:              u.Sensors,
		MainTypeSpace:        u.MainTypeSpace,
		MainTypeTime:         u.MainTypeTime,
		SourceApp:            sourceApp,
	}
}

// Resource is the immediate response to an accepted trip submission.
type Resource struct {
	JourneyID string `json:"journey_id"`
}
