// Package observe provides the OpenTelemetry metric instruments recorded by
// the evaluation pipeline and the progression ledger, plus the Prometheus
// exporter bridge that serves them on /metrics.
//
// A nil *Metrics is valid and records nothing, so components can take one
// optionally.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxa metrics.
const meterName = "github.com/abhisek/voxa"

// Metrics holds the metric instruments. All fields are safe for concurrent use.
type Metrics struct {
	// SessionsEvaluated counts evaluated sessions. Attributes:
	//   attribute.String("difficulty", ...), attribute.String("outcome", ...)
	SessionsEvaluated metric.Int64Counter

	// DuplicateSessions counts re-submissions rejected by the ledger.
	DuplicateSessions metric.Int64Counter

	// ExperienceAccrued sums experience added to users' totals.
	ExperienceAccrued metric.Int64Counter

	// StorageDuration tracks ledger storage latency. Attributes:
	//   attribute.String("op", ...), attribute.String("status", ...)
	StorageDuration metric.Float64Histogram
}

// storageBuckets are histogram boundaries in seconds for SQLite round trips.
var storageBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1,
}

// NewMetrics creates the instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionsEvaluated, err = m.Int64Counter("voxa.sessions.evaluated",
		metric.WithDescription("Practice sessions evaluated."),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, err
	}
	if met.DuplicateSessions, err = m.Int64Counter("voxa.sessions.duplicate",
		metric.WithDescription("Sessions rejected as exact re-submissions."),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, err
	}
	if met.ExperienceAccrued, err = m.Int64Counter("voxa.experience.accrued",
		metric.WithDescription("Experience points added to user totals."),
		metric.WithUnit("{xp}"),
	); err != nil {
		return nil, err
	}
	if met.StorageDuration, err = m.Float64Histogram("voxa.storage.duration",
		metric.WithDescription("Latency of progression ledger storage operations."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(storageBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordEvaluation counts one evaluated session.
func (m *Metrics) RecordEvaluation(ctx context.Context, difficulty, outcome string) {
	if m == nil {
		return
	}
	m.SessionsEvaluated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("difficulty", difficulty),
		attribute.String("outcome", outcome),
	))
}

// RecordDuplicate counts one rejected re-submission.
func (m *Metrics) RecordDuplicate(ctx context.Context) {
	if m == nil {
		return
	}
	m.DuplicateSessions.Add(ctx, 1)
}

// RecordExperience adds delta to the accrued-experience counter.
func (m *Metrics) RecordExperience(ctx context.Context, delta int64) {
	if m == nil || delta <= 0 {
		return
	}
	m.ExperienceAccrued.Add(ctx, delta)
}

// RecordStorage observes the latency of one storage operation.
func (m *Metrics) RecordStorage(ctx context.Context, op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StorageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("status", status),
	))
}
