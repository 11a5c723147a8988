// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/veriloc/veriloc/internal/admission"
	"github.com/veriloc/veriloc/internal/identity"
	"github.com/veriloc/veriloc/internal/logging"
	"github.com/veriloc/veriloc/internal/oracle"
)

// errorBody is the uniform error response shape.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON renders v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("write response failed")
	}
}

// writeError renders a JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Error: msg})
}

// writeMappedError translates a pipeline error into an HTTP response.
//
// Saturated admission and unavailable upstreams are retryable (503);
// rejected gateway credentials mean the deployment is misconfigured and no
// retry will help (401).
func writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, admission.ErrSaturated):
		writeError(w, r, http.StatusServiceUnavailable, "verification capacity exhausted, retry later")
	case errors.Is(err, identity.ErrBadCredentials):
		writeError(w, r, http.StatusUnauthorized, "gateway credentials rejected by identity provider")
	case errors.Is(err, identity.ErrUnavailable), errors.Is(err, oracle.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "verification oracle unavailable")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("unclassified pipeline error")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
