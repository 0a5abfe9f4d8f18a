// Package metrics provides Prometheus collectors for the authorization engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OtherProgram is the program label for programs without a registered policy.
const OtherProgram = "other"

// Metrics provides observability for authorization decisions.
// All methods are safe on a nil receiver.
type Metrics struct {
	// Full evaluation latency including rule fetch and audit
	EvaluateLatency prometheus.Histogram

	// Decision outcomes by program and result
	DecisionOutcome *prometheus.CounterVec

	// Rule cache lookups by result
	CacheLookups *prometheus.CounterVec

	// Rules that could not be evaluated
	RuleErrors prometheus.Counter

	// Rules skipped because their definition is malformed
	InvalidRules prometheus.Counter

	// Audit persistence
	AuditFailures prometheus.Counter
	AuditLatency  prometheus.Histogram
}

// New creates a Metrics instance registered with reg.
// A nil registerer uses the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		EvaluateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_evaluate_duration_seconds",
			Help:    "Duration of transaction authorization including audit",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		DecisionOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_decisions_total",
			Help: "Total authorization decisions by program and outcome",
		}, []string{"program", "outcome"}), // outcome: "approved", "denied", "error"

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_rule_cache_lookups_total",
			Help: "Rule cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss"

		RuleErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "warden_rule_evaluation_errors_total",
			Help: "Rules recorded as failed because a checker could not complete",
		}),

		InvalidRules: f.NewCounter(prometheus.CounterOpts{
			Name: "warden_invalid_rules_total",
			Help: "Rules skipped because their definition is malformed",
		}),

		AuditFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "warden_audit_failures_total",
			Help: "Decisions rejected because the audit record could not be written",
		}),

		AuditLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_audit_duration_seconds",
			Help:    "Duration of audit record persistence",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// ObserveEvaluate records the total evaluation duration.
func (m *Metrics) ObserveEvaluate(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// IncOutcome records a decision outcome.
func (m *Metrics) IncOutcome(program, outcome string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(program, outcome).Inc()
	}
}

// IncCache records a cache hit or miss.
func (m *Metrics) IncCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// IncRuleErrors records a rule evaluation error.
func (m *Metrics) IncRuleErrors() {
	if m != nil {
		m.RuleErrors.Inc()
	}
}

// IncInvalidRules records a skipped rule.
func (m *Metrics) IncInvalidRules() {
	if m != nil {
		m.InvalidRules.Inc()
	}
}

// IncAuditFailures records a failed audit write.
func (m *Metrics) IncAuditFailures() {
	if m != nil {
		m.AuditFailures.Inc()
	}
}

// ObserveAudit records the audit write duration.
func (m *Metrics) ObserveAudit(d time.Duration) {
	if m != nil {
		m.AuditLatency.Observe(d.Seconds())
	}
}
