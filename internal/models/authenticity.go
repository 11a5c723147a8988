// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

// Package models defines the wire schemas shared by the feed handlers, the
// reconciliation engine and the downstream sink clients.
package models

import "fmt"

// Authenticity is the tri-state classification of a position or batch.
//
// Wire values (kept stable for downstream consumers):
//
//	 1  Authentic      raw data matched the oracle
//	 0  NotAuthentic   raw data contradicted the oracle
//	-1  Unknown        oracle had no record, or not yet examined
type Authenticity int

const (
	NotAuthentic Authenticity = 0
	Authentic    Authenticity = 1
	Unknown      Authenticity = -1
)

// String implements fmt.Stringer for logs and metrics labels.
func (a Authenticity) String() string {
	switch a {
	case Authentic:
		return "authentic"
	case NotAuthentic:
		return "not_authentic"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("invalid(%d)", int(a))
	}
}

// Valid reports whether a holds one of the three defined states.
func (a Authenticity) Valid() bool {
	return a == Authentic || a == NotAuthentic || a == Unknown
}
