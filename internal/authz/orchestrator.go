// Package authz authorizes benefit-program transactions.
//
// The Orchestrator fetches the applicable rules, evaluates them in priority
// order, records the decision in the audit log and only then returns it.
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/warden/internal/audit"
	"github.com/opensource-finance/warden/internal/decision"
	"github.com/opensource-finance/warden/internal/domain"
	"github.com/opensource-finance/warden/internal/metrics"
	"github.com/opensource-finance/warden/internal/policy"
	"github.com/opensource-finance/warden/internal/rules"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("warden-authz")

// NoRulesReason is the denial reason when no rule applies and the engine is fail-closed.
const NoRulesReason = "No applicable rules configured"

// Orchestrator evaluates transactions against the configured rules.
type Orchestrator struct {
	source      *RuleSource
	evaluator   *rules.Evaluator
	policies    *policy.Registry
	areas       *policy.Areas
	recorder    *audit.Recorder
	metrics     *metrics.Metrics
	clock       domain.Clock
	defaultDeny bool
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Source    *RuleSource
	Evaluator *rules.Evaluator
	Policies  *policy.Registry
	Recorder  *audit.Recorder
	Metrics   *metrics.Metrics

	// Areas is optional; nil disables restricted-area checks.
	Areas *policy.Areas

	// Clock defaults to domain.SystemClock.
	Clock domain.Clock
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(deps Deps, cfg domain.EngineConfig) *Orchestrator {
	clock := deps.Clock
	if clock == nil {
		clock = domain.SystemClock
	}
	policies := deps.Policies
	if policies == nil {
		policies = policy.NewRegistry()
	}
	return &Orchestrator{
		source:      deps.Source,
		evaluator:   deps.Evaluator,
		policies:    policies,
		areas:       deps.Areas,
		recorder:    deps.Recorder,
		metrics:     deps.Metrics,
		clock:       clock,
		defaultDeny: cfg.DefaultDeny,
	}
}

// Evaluate authorizes one transaction. The transaction is not modified.
//
// Only two failures surface as errors: domain.ErrRepositoryUnavailable when
// rules cannot be read, and domain.ErrAuditWriteFailure when the decision
// cannot be recorded. Every other problem is folded into the result.
func (o *Orchestrator) Evaluate(ctx context.Context, tx *domain.TransactionContext) (*domain.EvaluationResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: transaction is required", domain.ErrInvalidInput)
	}
	if tx.ID == "" || tx.Program == "" {
		return nil, fmt.Errorf("%w: transaction id and program are required", domain.ErrInvalidInput)
	}

	start := time.Now()
	ctx, span := tracer.Start(ctx, "authz.Evaluate",
		trace.WithAttributes(
			attribute.String("tx.id", tx.ID),
			attribute.String("tx.program", tx.Program),
			attribute.String("tx.mcc", tx.MerchantCategoryCode),
		),
	)
	defer span.End()

	txc := *tx
	if txc.Timestamp.IsZero() {
		txc.Timestamp = o.clock()
	}

	ruleset, err := o.source.Rules(ctx, txc.Program, txc.MerchantCategoryCode)
	if err != nil {
		o.fail(ctx, span, &txc, "rule lookup failed", err)
		return nil, err
	}

	acc := decision.New(txc.ID)
	if len(ruleset) == 0 {
		if o.defaultDeny {
			acc.Deny(NoRulesReason, domain.MaxRiskScore)
		}
	} else {
		decision.Fold(acc, ruleset, o.step(ctx, &txc, o.programCheck(&txc)))
	}
	res := acc.Result(o.clock())

	if _, err := o.recorder.Record(ctx, &txc, res, time.Since(start)); err != nil {
		o.fail(ctx, span, &txc, "decision not recorded", err)
		return nil, err
	}

	outcome := "approved"
	if !res.Approved {
		outcome = "denied"
	}
	o.metrics.IncOutcome(o.programLabel(txc.Program), outcome)
	o.metrics.ObserveEvaluate(time.Since(start))

	span.SetAttributes(
		attribute.Bool("decision.approved", res.Approved),
		attribute.Int("decision.risk_score", res.RiskScore),
		attribute.Int("decision.rules_applied", len(res.AppliedRules)),
	)

	slog.Debug("transaction evaluated",
		"tx_id", txc.ID,
		"program", txc.Program,
		"mcc", txc.MerchantCategoryCode,
		"approved", res.Approved,
		"risk_score", res.RiskScore,
		"rules_applied", len(res.AppliedRules),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return res, nil
}

// step evaluates one rule, converting panics into rule evaluation errors.
func (o *Orchestrator) step(ctx context.Context, tx *domain.TransactionContext, program rules.ProgramCheck) decision.StepFunc {
	return func(rule *domain.Rule) (domain.CheckResult, error) {
		res, err := o.safeEvaluate(ctx, rule, tx, program)
		if err != nil {
			o.metrics.IncRuleErrors()
			slog.Error("rule evaluation error",
				"tx_id", tx.ID,
				"rule_id", rule.ID,
				"rule_code", rule.Code,
				"error", err,
			)
		}
		return res, err
	}
}

func (o *Orchestrator) safeEvaluate(ctx context.Context, rule *domain.Rule, tx *domain.TransactionContext, program rules.ProgramCheck) (res domain.CheckResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &domain.RuleEvaluationError{RuleID: rule.ID, Cause: fmt.Errorf("panic: %v", p)}
		}
	}()
	return o.evaluator.EvaluateRule(ctx, rule, tx, program)
}

// programCheck returns the program checks for the transaction, memoized so
// they run at most once per evaluation however many program rules apply.
func (o *Orchestrator) programCheck(tx *domain.TransactionContext) rules.ProgramCheck {
	p, ok := o.policies.Lookup(tx.Program)
	if !ok && o.areas == nil {
		return nil
	}

	var (
		done bool
		res  domain.CheckResult
		err  error
	)
	return func(ctx context.Context) (domain.CheckResult, error) {
		if !done {
			done = true
			res, err = o.checkProgram(ctx, p, tx)
		}
		return res, err
	}
}

// checkProgram runs the program policy, if any, then the restricted areas.
// A passing policy result keeps its required actions.
func (o *Orchestrator) checkProgram(ctx context.Context, p policy.ProgramPolicy, tx *domain.TransactionContext) (domain.CheckResult, error) {
	res := domain.Allow()
	if p != nil {
		var err error
		if res, err = checkPolicy(ctx, p, tx); err != nil || !res.Allowed {
			return res, err
		}
	}
	if o.areas != nil {
		area, err := o.areas.Check(ctx, tx)
		if err != nil || !area.Allowed {
			return area, err
		}
	}
	return res, nil
}

func checkPolicy(ctx context.Context, p policy.ProgramPolicy, tx *domain.TransactionContext) (res domain.CheckResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("program policy %s panicked: %v", p.Program(), r)
		}
	}()
	return p.Check(ctx, tx)
}

func (o *Orchestrator) fail(ctx context.Context, span trace.Span, tx *domain.TransactionContext, msg string, err error) {
	o.metrics.IncOutcome(o.programLabel(tx.Program), "error")
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	level := slog.LevelWarn
	if errors.Is(err, domain.ErrAuditWriteFailure) {
		level = slog.LevelError
	}
	slog.Log(ctx, level, msg,
		"tx_id", tx.ID,
		"program", tx.Program,
		"error", err,
	)
}

// programLabel bounds the program metric label to programs with a policy.
func (o *Orchestrator) programLabel(program string) string {
	if _, ok := o.policies.Lookup(program); ok {
		return program
	}
	return metrics.OtherProgram
}
