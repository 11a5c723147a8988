// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package models

import (
	"encoding/hex"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitGNSSStream(t *testing.T) {
	// Two UBX frames; the satellite id sits at byte offset 5 of each body.
	stream := "b56202132800010c" + "b562021328000115"

	fixes, err := SplitGNSSStream(stream)
	require.NoError(t, err)
	require.Len(t, fixes, 2)

	assert.Equal(t, 12, fixes[0].SVID)
	assert.Equal(t, "02132800010c", fixes[0].RawData)
	assert.Equal(t, 21, fixes[1].SVID)
	assert.Equal(t, "021328000115", fixes[1].RawData)
}

func TestSplitGNSSStreamUppercase(t *testing.T) {
	fixes, err := SplitGNSSStream("B56202132800010C")
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	assert.Equal(t, 12, fixes[0].SVID)
	assert.Equal(t, "02132800010c", fixes[0].RawData)
}

func TestSplitGNSSStreamInvalid(t *testing.T) {
	tests := []struct {
		name   string
		stream string
	}{
		{"not hex", "b562zz"},
		{"frame too short", "b5620213"},
		{"odd length", "b56202132800010"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SplitGNSSStream(tt.stream)
			assert.Error(t, err)
		})
	}
}

func TestGNSSStreamUnmarshal(t *testing.T) {
	var g GNSSStream
	require.NoError(t, json.Unmarshal([]byte(`"b56202132800010c"`), &g))
	require.Len(t, g, 1)
	assert.Equal(t, 12, g[0].SVID)

	assert.Error(t, json.Unmarshal([]byte(`12345`), &g))
}

func TestAndroidDataHexString(t *testing.T) {
	var d AndroidData
	require.NoError(t, json.Unmarshal([]byte(`"aabbcc"`), &d))
	assert.Equal(t, AndroidData("aabbcc"), d)
}

func TestAndroidDataByteArray(t *testing.T) {
	ints := make([]int, androidDataLen)
	ints[0] = 1
	ints[1] = -1
	ints[2] = 127
	ints[3] = -128

	payload, err := json.Marshal(ints)
	require.NoError(t, err)

	var d AndroidData
	require.NoError(t, json.Unmarshal(payload, &d))

	want := make([]byte, androidDataLen)
	want[0] = 0x01
	want[1] = 0xff
	want[2] = 0x7f
	want[3] = 0x80
	assert.Equal(t, AndroidData(hex.EncodeToString(want)), d)
}

func TestAndroidDataRejectsBadArrays(t *testing.T) {
	var d AndroidData
	assert.Error(t, json.Unmarshal([]byte(`[1,2,3]`), &d), "wrong length")
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &d), "wrong type")

	ints := make([]int, androidDataLen)
	ints[7] = 300
	payload, err := json.Marshal(ints)
	require.NoError(t, err)
	assert.Error(t, json.Unmarshal(payload, &d), "out of signed-byte range")
}
