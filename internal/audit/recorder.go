// Package audit records authorization decisions with fail-closed semantics.
//
// Every decision is appended to the audit log synchronously before it is
// returned. If the write fails the decision must not be reported.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/warden/internal/domain"
	"github.com/opensource-finance/warden/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultTimeout bounds an audit write when none is configured.
const DefaultTimeout = 2 * time.Second

// Publisher announces durably recorded decisions.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Recorder writes audit records. All writes are synchronous.
type Recorder struct {
	log       domain.AuditLog
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher Publisher
	timeout   time.Duration
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithPublisher announces each recorded decision on the decision topic.
// Publishing is best effort and never fails the decision.
func WithPublisher(p Publisher) Option {
	return func(r *Recorder) {
		r.publisher = p
	}
}

// WithTimeout bounds each audit write.
func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// New creates a recorder over the audit log.
func New(log domain.AuditLog, opts ...Option) *Recorder {
	r := &Recorder{
		log:     log,
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends the decision and returns the stored record.
// The write ignores caller cancellation and is bounded by the recorder's own
// timeout. Failure wraps domain.ErrAuditWriteFailure; the caller must not
// report the decision.
func (r *Recorder) Record(ctx context.Context, tx *domain.TransactionContext, res *domain.EvaluationResult, took time.Duration) (*domain.AuditRecord, error) {
	ctx, span := otel.Tracer("warden").Start(ctx, "audit.Record")
	defer span.End()

	rec := domain.NewAuditRecord(uuid.New().String(), tx, res, took)

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	start := time.Now()
	if err := r.log.AppendAudit(wctx, rec); err != nil {
		r.metrics.IncAuditFailures()
		r.logger.ErrorContext(ctx, "CRITICAL: decision audit failed",
			"tx_id", tx.ID,
			"program", tx.Program,
			"approved", res.Approved,
			"error", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit write failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrAuditWriteFailure, err)
	}
	r.metrics.ObserveAudit(time.Since(start))
	span.SetAttributes(attribute.String("audit.id", rec.ID))

	r.announce(ctx, rec)
	return rec, nil
}

func (r *Recorder) announce(ctx context.Context, rec *domain.AuditRecord) {
	if r.publisher == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to encode decision event", "tx_id", rec.TransactionID, "error", err)
		return
	}
	if err := r.publisher.Publish(context.WithoutCancel(ctx), domain.TopicDecision, payload); err != nil {
		r.logger.WarnContext(ctx, "failed to publish decision event", "tx_id", rec.TransactionID, "error", err)
	}
}
