// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package models

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// OracleMessage is one raw-signal record returned by the verification
// oracle. A nil RawData means the oracle has no record for the timestamp;
// that is a successful "unknown" answer, not an error.
type OracleMessage struct {
	Timestamp int64   `json:"timestamp"`
	RawData   *string `json:"raw_data"`
}

// OracleMessageList is the windowed-lookup response envelope.
type OracleMessageList struct {
	SatelliteID int             `json:"satellite_id"`
	Info        []OracleMessage `json:"info"`
}

// SignalFix is one reported raw-signal sample: a satellite identifier plus
// the hex-encoded navigation payload captured by the device.
type SignalFix struct {
	SVID    int    `json:"svid"`
	RawData string `json:"raw_data"`
}

// ubloxSyncWord is the UBX frame preamble; IoT devices concatenate whole
// UBX-RXM-SFRBX frames into a single hex stream separated by it.
const ubloxSyncWord = "b562"

// svidByteOffset is the position of the satellite id inside a UBX frame
// body once the sync word has been stripped.
const svidByteOffset = 5

// GNSSStream is the concatenated UBX hex stream reported by IoT devices.
// It unmarshals from a single hex string and splits into per-satellite
// fixes. It never marshals back: raw signals are write-only verification
// input and are stripped from every output.
type GNSSStream []SignalFix

// UnmarshalJSON splits the hex stream on the UBX sync word and extracts the
// satellite id from each frame.
func (g *GNSSStream) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("gnss stream must be a hex string: %w", err)
	}

	fixes, err := SplitGNSSStream(raw)
	if err != nil {
		return err
	}
	*g = fixes
	return nil
}

// SplitGNSSStream splits a concatenated UBX hex stream into signal fixes.
func SplitGNSSStream(raw string) ([]SignalFix, error) {
	var fixes []SignalFix
	for _, element := range strings.Split(strings.ToLower(raw), ubloxSyncWord) {
		if element == "" {
			continue
		}
		body, err := hex.DecodeString(element)
		if err != nil {
			return nil, fmt.Errorf("invalid gnss message: %w", err)
		}
		if len(body) <= svidByteOffset {
			return nil, fmt.Errorf("invalid gnss message: frame too short (%d bytes)", len(body))
		}
		fixes = append(fixes, SignalFix{
			SVID:    int(body[svidByteOffset]),
			RawData: element,
		})
	}
	return fixes, nil
}

// androidDataLen is the fixed payload length of an Android GnssNavigationMessage.
const androidDataLen = 30

// AndroidData is the raw navigation payload reported by the mobile app.
// Clients send either the hex string directly or the Android representation,
// a 30-element array of signed bytes, which is normalized to hex.
type AndroidData string

// UnmarshalJSON accepts a hex string or a []int8-style array.
func (d *AndroidData) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = AndroidData(s)
		return nil
	}

	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return fmt.Errorf("android data must be a hex string or byte array: %w", err)
	}
	if len(ints) != androidDataLen {
		return fmt.Errorf("android data must have %d elements, got %d", androidDataLen, len(ints))
	}

	buf := make([]byte, len(ints))
	for i, v := range ints {
		if v < -128 || v > 127 {
			return fmt.Errorf("android data element %d out of signed-byte range: %d", i, v)
		}
		buf[i] = byte(v) //nolint:gosec // signed-byte reinterpretation, range-checked above
	}
	*d = AndroidData(hex.EncodeToString(buf))
	return nil
}

// GalileoAuth is one authentication sample attached to a trip position:
// the raw payload plus the receiver clock fields used by the meaconing
// pre-check.
type GalileoAuth struct {
	Data AndroidData `json:"data"`
	// FullBiasNano is the difference between the receiver hardware clock
	// and true GPS time, in nanoseconds.
	FullBiasNano int64 `json:"fullbiasnano"`
	MsgID        int   `json:"msgid"`
	Status       int   `json:"status"`
	SubMsgID     int   `json:"submsgid"`
	SVID         int   `json:"svid"`
	// Time is the UTC capture timestamp in milliseconds.
	Time int64 `json:"time"`
	// TimeNano is the receiver internal hardware clock value in nanoseconds.
	TimeNano int64 `json:"timenano"`
	Type     int   `json:"type"`
}
