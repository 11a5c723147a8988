// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

// Package api exposes the gateway's HTTP surface: the feed submission
// endpoints, the journey extraction proxies and the operational routes.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/veriloc/veriloc/internal/admission"
	"github.com/veriloc/veriloc/internal/config"
	"github.com/veriloc/veriloc/internal/logging"
	"github.com/veriloc/veriloc/internal/models"
	"github.com/veriloc/veriloc/internal/sink"
	"github.com/veriloc/veriloc/internal/verify"
)

// maxRequestSize bounds feed submission reads. Trips carry raw navigation
// payloads per position, so the bound is generous.
const maxRequestSize = 16 << 20

// Server holds the handler dependencies.
type Server struct {
	cfg        *config.Config
	engine     *verify.Engine
	gates      *admission.Gates
	accounting *sink.Accounting
	anonymizer *sink.Anonymizer
	anonengine *sink.Anonengine
	tracker    *Tracker
}

// NewServer wires the handlers.
func NewServer(cfg *config.Config, engine *verify.Engine, gates *admission.Gates,
	accounting *sink.Accounting, anonymizer *sink.Anonymizer, anonengine *sink.Anonengine,
	tracker *Tracker) *Server {
	return &Server{
		cfg:        cfg,
		engine:     engine,
		gates:      gates,
		accounting: accounting,
		anonymizer: anonymizer,
		anonengine: anonengine,
		tracker:    tracker,
	}
}

// decodeBody reads and unmarshals the request body, returning its size.
func decodeBody(r *http.Request, v any) (int, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return len(body), fmt.Errorf("decode body: %w", err)
	}
	return len(body), nil
}

// newAudit starts an audit record for one batch attempt.
func newAudit(req models.Requester, msgID string, msgSize int) *models.AuditRecord {
	return &models.AuditRecord{
		SourceApp: sourceApp(req),
		ClientID:  req.Client,
		UserID:    req.User,
		MsgID:     msgID,
		MsgSize:   msgSize,
		MsgTime:   time.Now().UTC(),
	}
}

// handleAuthenticate accepts a trip, answers with the assigned journey id
// immediately and runs verification and storage in the background.
func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	requester, _ := RequesterFromContext(r.Context())

	var feed models.UserFeed
	size, err := decodeBody(r, &feed)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	release, err := s.gates.Admit(r.Context(), admission.FeedUser, admission.OpStore)
	if err != nil {
		writeMappedError(w, r, err)
		return
	}

	journeyID := uuid.NewString()
	s.tracker.Go(r.Context(), "user-store", func(ctx context.Context) {
		defer release()
		s.verifyAndStoreTrip(ctx, requester, &feed, journeyID, size)
	})

	writeJSON(w, r, http.StatusOK, models.Resource{JourneyID: journeyID})
}

// verifyAndStoreTrip is the background pipeline behind handleAuthenticate.
// Exactly one audit record is emitted per attempt; an aborted verification
// reports zeroed counters with the error description.
func (s *Server) verifyAndStoreTrip(ctx context.Context, requester models.Requester,
	feed *models.UserFeed, journeyID string, msgSize int) {
	rec := newAudit(requester, journeyID, msgSize)

	counters, err := s.verifyTrip(ctx, feed)
	if err != nil {
		// Partial failures are filed under a separate accounting target.
		rec.SourceApp += "_error"
		rec.Error = true
		rec.ErrorDescription = err.Error()
		s.accounting.Record(ctx, rec)
		logging.Ctx(ctx).Error().Err(err).Str("journey", journeyID).
			Msg("trip verification aborted")
		return
	}

	rec.Counters = counters
	s.accounting.Record(ctx, rec)

	app := sourceApp(requester)
	if err := s.anonymizer.StoreUser(ctx, feed.ToStored(app, journeyID)); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("journey", journeyID).
			Msg("anonymized store delivery failed")
	}
	if err := s.anonengine.StoreTrip(ctx, feed.ToLegacy(app, journeyID)); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("journey", journeyID).
			Msg("legacy anonymizer delivery failed")
	}
}

// verifyTrip runs trip verification under the shared authentication gate.
func (s *Server) verifyTrip(ctx context.Context, feed *models.UserFeed) (models.BatchCounters, error) {
	releaseAuth, err := s.gates.Authenticate(ctx)
	if err != nil {
		return models.BatchCounters{}, err
	}
	defer releaseAuth()
	return s.engine.VerifyTrip(ctx, feed)
}

// handleAuthenticateTest verifies a trip synchronously and returns the
// classified trace. Nothing is persisted; verification failures surface to
// the caller instead of the audit trail.
func (s *Server) handleAuthenticateTest(w http.ResponseWriter, r *http.Request) {
	requester, _ := RequesterFromContext(r.Context())

	var feed models.UserFeed
	size, err := decodeBody(r, &feed)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	release, err := s.gates.Admit(r.Context(), admission.FeedUser, admission.OpTest)
	if err != nil {
		writeMappedError(w, r, err)
		return
	}
	defer release()

	counters, err := s.verifyTrip(r.Context(), &feed)
	if err != nil {
		writeMappedError(w, r, err)
		return
	}

	rec := newAudit(requester, uuid.NewString(), size)
	rec.Counters = counters
	s.accounting.Record(r.Context(), rec)

	writeJSON(w, r, http.StatusOK, &feed)
}

// handleIoTAuthenticate verifies one observation synchronously and returns
// its verdict output.
func (s *Server) handleIoTAuthenticate(w http.ResponseWriter, r *http.Request) {
	requester, _ := RequesterFromContext(r.Context())

	obs, size, ok := s.decodeObservation(w, r)
	if !ok {
		return
	}

	release, err := s.gates.Admit(r.Context(), admission.FeedIoT, admission.OpTest)
	if err != nil {
		writeMappedError(w, r, err)
		return
	}
	defer release()

	verdict, counters, err := s.verifyObservation(r.Context(), obs)
	if err != nil {
		writeMappedError(w, r, err)
		return
	}

	observationID := uuid.NewString()
	rec := newAudit(requester, observationID, size)
	rec.Counters = counters
	s.accounting.Record(r.Context(), rec)

	writeJSON(w, r, http.StatusOK, obs.ToOutput(verdict, observationID))
}

// handleIoTStore accepts an observation, answers with its correlation id and
// runs verification and storage in the background.
func (s *Server) handleIoTStore(w http.ResponseWriter, r *http.Request) {
	requester, _ := RequesterFromContext(r.Context())

	obs, size, ok := s.decodeObservation(w, r)
	if !ok {
		return
	}

	release, err := s.gates.Admit(r.Context(), admission.FeedIoT, admission.OpStore)
	if err != nil {
		writeMappedError(w, r, err)
		return
	}

	observationID := uuid.NewString()
	s.tracker.Go(r.Context(), "iot-store", func(ctx context.Context) {
		defer release()
		s.verifyAndStoreObservation(ctx, requester, obs, observationID, size)
	})

	writeJSON(w, r, http.StatusOK, map[string]string{"observation_id": observationID})
}

// verifyAndStoreObservation is the background pipeline behind handleIoTStore.
func (s *Server) verifyAndStoreObservation(ctx context.Context, requester models.Requester,
	obs *models.IoTObservation, observationID string, msgSize int) {
	rec := newAudit(requester, observationID, msgSize)

	verdict, counters, err := s.verifyObservation(ctx, obs)
	if err != nil {
		rec.Error = true
		rec.ErrorDescription = err.Error()
		s.accounting.Record(ctx, rec)
		logging.Ctx(ctx).Error().Err(err).Str("observation", observationID).
			Msg("observation verification aborted")
		return
	}

	rec.Counters = counters
	s.accounting.Record(ctx, rec)

	if err := s.anonymizer.StoreIoT(ctx, obs.ToOutput(verdict, observationID)); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("observation", observationID).
			Msg("anonymized store delivery failed")
	}
}

// verifyObservation runs observation verification under the shared
// authentication gate.
func (s *Server) verifyObservation(ctx context.Context, obs *models.IoTObservation) (models.Authenticity, models.BatchCounters, error) {
	releaseAuth, err := s.gates.Authenticate(ctx)
	if err != nil {
		return models.Unknown, models.BatchCounters{}, err
	}
	defer releaseAuth()
	return s.engine.VerifyObservation(ctx, obs)
}

// decodeObservation reads and validates an IoT observation submission.
func (s *Server) decodeObservation(w http.ResponseWriter, r *http.Request) (*models.IoTObservation, int, bool) {
	var obs models.IoTObservation
	size, err := decodeBody(r, &obs)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return nil, 0, false
	}
	if err := obs.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return nil, 0, false
	}
	return &obs, size, true
}

// handleAccountingExtract returns the accounting history for one source app.
func (s *Server) handleAccountingExtract(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "source_app")
	if app == "" {
		writeError(w, r, http.StatusBadRequest, "missing source app")
		return
	}

	payload, err := s.accounting.ExtractUser(r.Context(), app)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("source_app", app).
			Msg("accounting extraction fetch failed")
		writeError(w, r, http.StatusBadGateway, "accounting service unavailable")
		return
	}
	writeJSON(w, r, http.StatusOK, payload)
}

// handleJourneyMobility proxies the mobility extraction for a journey.
func (s *Server) handleJourneyMobility(w http.ResponseWriter, r *http.Request) {
	s.proxyJourney(w, r, s.anonengine.Mobility)
}

// handleJourneyDetails proxies the details extraction for a journey.
func (s *Server) handleJourneyDetails(w http.ResponseWriter, r *http.Request) {
	s.proxyJourney(w, r, s.anonengine.Details)
}

func (s *Server) proxyJourney(w http.ResponseWriter, r *http.Request,
	fetch func(context.Context, string) (json.RawMessage, error)) {
	journeyID := chi.URLParam(r, "id")
	if journeyID == "" {
		writeError(w, r, http.StatusBadRequest, "missing journey id")
		return
	}

	payload, err := fetch(r.Context(), journeyID)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("journey", journeyID).
			Msg("journey extraction fetch failed")
		writeError(w, r, http.StatusBadGateway, "journey extraction unavailable")
		return
	}
	writeJSON(w, r, http.StatusOK, payload)
}

// handleLive is the liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady is the readiness probe. The gateway refuses to start without
// oracle credentials, so a serving process is a ready process.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}
