// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

// Package verify implements the reconciliation engine: it compares reported
// raw navigation payloads against the verification oracle and classifies
// each position Authentic, NotAuthentic or Unknown.
//
// Reconciliation is tolerant of clock skew. A payload that contradicts the
// oracle's answer for its exact timestamp is only tentatively fake: the
// engine then searches a window of neighbouring timestamps, and a match
// anywhere in the window rehabilitates the position (a "false fake"). Only a
// payload that matches nothing in the whole window is a real fake, and it is
// logged with the full window evidence.
package verify

import (
	"context"
	"strings"
	"time"

	"github.com/veriloc/veriloc/internal/config"
	"github.com/veriloc/veriloc/internal/logging"
	"github.com/veriloc/veriloc/internal/metrics"
	"github.com/veriloc/veriloc/internal/models"
	"github.com/veriloc/veriloc/internal/oracle"
	"github.com/veriloc/veriloc/internal/region"
)

// Oracle is the lookup surface the engine needs; implemented by
// oracle.Client.
type Oracle interface {
	FetchSingle(ctx context.Context, kind oracle.Kind, svid int, timestamp int64, reg region.Region) (*string, error)
	FetchWindow(ctx context.Context, kind oracle.Kind, svid int, timestamp int64, reg region.Region) ([]models.OracleMessage, error)
}

// Engine reconciles reported raw signals against the oracle.
type Engine struct {
	cfg     config.VerificationConfig
	oracle  Oracle
	regions *region.Classifier
}

// New constructs the engine.
func New(cfg config.VerificationConfig, o Oracle, regions *region.Classifier) *Engine {
	return &Engine{cfg: cfg, oracle: o, regions: regions}
}

// sample is one raw-signal payload to reconcile: satellite, hex payload and
// the capture timestamp the oracle is keyed by.
type sample struct {
	svid      int
	raw       string
	timestamp int64
}

// VerifyTrip classifies every position of a trip in place and returns the
// per-fix tallies. Positions that never reach the oracle (no auth data,
// meaconing pre-check) are classified but not tallied. An error means the
// oracle (or the identity provider behind it) failed; positions already
// classified keep their verdicts, and the caller decides how to report the
// aborted batch.
func (e *Engine) VerifyTrip(ctx context.Context, feed *models.UserFeed) (models.BatchCounters, error) {
	start := time.Now()
	defer func() {
		metrics.BatchDuration.WithLabelValues("user").Observe(time.Since(start).Seconds())
	}()

	feed.ResetClassifications()

	var counters models.BatchCounters

	// Meaconing reference: the clock fields of the previous auth-bearing
	// position. A position without auth data breaks the chain.
	var prev *models.GalileoAuth

	for i := range feed.Trace {
		p := &feed.Trace[i]

		if len(p.GalileoAuth) == 0 {
			p.Authenticity = models.Unknown
			prev = nil
			continue
		}

		cur := &p.GalileoAuth[0]
		if prev != nil && e.meaconing(prev, cur) {
			p.Authenticity = models.NotAuthentic
			metrics.MeaconingDetections.Inc()
			logging.Ctx(ctx).Warn().
				Str("journey", feed.ID).
				Int("position", i).
				Int64("fullbiasnano", cur.FullBiasNano).
				Int64("timenano", cur.TimeNano).
				Msg("clock drift exceeds meaconing threshold")
			prev = cur
			continue
		}

		reg := e.regions.Classify(p.Lat, p.Lon)
		samples := make([]sample, len(p.GalileoAuth))
		for j, ga := range p.GalileoAuth {
			samples[j] = sample{svid: ga.SVID, raw: string(ga.Data), timestamp: ga.Time}
		}

		verdict, sub, err := e.reconcile(ctx, "user", oracle.KindGalileo, samples, reg)
		counters.Add(sub)
		if err != nil {
			return counters, err
		}
		p.Authenticity = verdict
		prev = cur
	}

	return counters, nil
}

// VerifyObservation classifies one IoT observation. All satellite fixes in
// the GNSS stream form one record, reconciled under the same procedure as a
// trip position: an empty oracle answer leaves the whole observation
// Unknown, a contradicted fix condemns it, and remaining fixes are not
// examined in either case.
func (e *Engine) VerifyObservation(ctx context.Context, obs *models.IoTObservation) (models.Authenticity, models.BatchCounters, error) {
	start := time.Now()
	defer func() {
		metrics.BatchDuration.WithLabelValues("iot").Observe(time.Since(start).Seconds())
	}()

	reg := e.regions.Classify(obs.Result.Position.Lat(), obs.Result.Position.Lon())
	timestamp := obs.CaptureMillis()

	samples := make([]sample, len(obs.Result.GNSS))
	for i, fix := range obs.Result.GNSS {
		samples[i] = sample{svid: fix.SVID, raw: fix.RawData, timestamp: timestamp}
	}

	verdict, counters, err := e.reconcile(ctx, "iot", oracle.KindMessage, samples, reg)
	if err != nil {
		return models.Unknown, counters, err
	}
	return verdict, counters, nil
}

// reconcile classifies one record from its samples and tallies each sample
// it examines.
//
// Per sample: an oracle answer with no record makes the whole record Unknown
// (remaining samples are not examined); an exact match confirms the sample;
// a mismatch tentatively condemns it and opens the window search, where a
// match anywhere flips the sample back to authentic and no match makes the
// record NotAuthentic. The returned counters carry exactly the samples
// examined, tentative condemnations undone.
func (e *Engine) reconcile(ctx context.Context, feed string, kind oracle.Kind, samples []sample, reg region.Region) (models.Authenticity, models.BatchCounters, error) {
	var counters models.BatchCounters

	for _, s := range samples {
		counters.Checked++

		truth, err := e.oracle.FetchSingle(ctx, kind, s.svid, s.timestamp, reg)
		if err != nil {
			return models.Unknown, counters, err
		}
		if truth == nil {
			counters.Unknown++
			metrics.VerifiedFixes.WithLabelValues(feed, models.Unknown.String()).Inc()
			return models.Unknown, counters, nil
		}
		if hexEqual(*truth, s.raw) {
			counters.Authentic++
			metrics.VerifiedFixes.WithLabelValues(feed, models.Authentic.String()).Inc()
			continue
		}

		// Tentatively fake; search the window before condemning.
		counters.NotAuthentic++
		window, err := e.oracle.FetchWindow(ctx, kind, s.svid, s.timestamp, reg)
		if err != nil {
			return models.Unknown, counters, err
		}
		if windowMatch(window, s.raw) {
			counters.NotAuthentic--
			counters.Authentic++
			metrics.VerifiedFixes.WithLabelValues(feed, models.Authentic.String()).Inc()
			logging.Ctx(ctx).Debug().
				Str("feed", feed).
				Int("svid", s.svid).
				Int64("timestamp", s.timestamp).
				Msg("mismatch rehabilitated by window search")
			continue
		}

		metrics.RealFakeDetections.WithLabelValues(feed).Inc()
		metrics.VerifiedFixes.WithLabelValues(feed, models.NotAuthentic.String()).Inc()
		logging.Ctx(ctx).Error().
			Str("feed", feed).
			Int("svid", s.svid).
			Int64("timestamp", s.timestamp).
			Str("reported", s.raw).
			Str("expected", *truth).
			Str("region", reg.Name).
			Interface("window", window).
			Msg("raw signal matches nothing in the oracle window")
		return models.NotAuthentic, counters, nil
	}

	return counters.Verdict(), counters, nil
}

// windowMatch reports whether any window entry carries the payload.
func windowMatch(window []models.OracleMessage, raw string) bool {
	for _, msg := range window {
		if msg.RawData != nil && hexEqual(*msg.RawData, raw) {
			return true
		}
	}
	return false
}

// hexEqual compares two hex payloads ignoring case.
func hexEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

// meaconing reports whether the receiver clock drifted faster than the
// configured threshold between two consecutive auth-bearing positions. A
// rebroadcast (meaconed) signal delays the apparent propagation time, which
// shows up as an abnormal positive fullbiasnano step relative to the
// hardware clock; the drift is compared signed, so a negative step never
// trips the check.
func (e *Engine) meaconing(prev, cur *models.GalileoAuth) bool {
	dTime := cur.TimeNano - prev.TimeNano
	if dTime == 0 {
		return false
	}
	drift := float64(cur.FullBiasNano-prev.FullBiasNano) / float64(dTime)
	return drift > e.cfg.MeaconingThreshold
}
