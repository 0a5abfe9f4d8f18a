package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
)

// VelocityChecker checks spend and count limits against transaction history.
type VelocityChecker interface {
	Check(ctx context.Context, limit *domain.VelocityCheck, tx *domain.TransactionContext) (domain.CheckResult, error)
}

// Describer returns the human-readable description of a merchant code.
type Describer interface {
	Description(code string) string
}

// ProgramCheck runs the program policy for the transaction being evaluated.
// Nil means the program has no policy.
type ProgramCheck func(ctx context.Context) (domain.CheckResult, error)

// Evaluator runs the checkers implied by one rule.
type Evaluator struct {
	velocity      VelocityChecker
	describer     Describer
	exprs         *ExpressionEngine
	lookupTimeout time.Duration
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithLookupTimeout bounds every history lookup made while checking a rule.
func WithLookupTimeout(d time.Duration) EvaluatorOption {
	return func(e *Evaluator) {
		e.lookupTimeout = d
	}
}

// NewEvaluator creates an evaluator.
func NewEvaluator(velocity VelocityChecker, describer Describer, exprs *ExpressionEngine, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		velocity:  velocity,
		describer: describer,
		exprs:     exprs,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateRule runs the rule's checkers in a fixed order: merchant code, amount,
// velocity, time, geography, expression, then the program policy when the rule
// belongs to a program. The first failing checker decides the result.
//
// A checker that cannot complete returns a *domain.RuleEvaluationError.
func (e *Evaluator) EvaluateRule(ctx context.Context, rule *domain.Rule, tx *domain.TransactionContext, program ProgramCheck) (domain.CheckResult, error) {
	if res := CheckMCC(rule, tx, e.describe); !res.Allowed {
		return res, nil
	}

	c := rule.Conditions

	if c.AmountLimit != nil {
		if res := CheckAmount(*c.AmountLimit, tx); !res.Allowed {
			return res, nil
		}
	}

	if c.VelocityCheck != nil {
		if e.velocity == nil {
			return domain.CheckResult{}, evalErr(rule, fmt.Errorf("no velocity checker configured"))
		}
		lctx, cancel := e.bounded(ctx)
		res, err := e.velocity.Check(lctx, c.VelocityCheck, tx)
		cancel()
		if err != nil {
			return domain.CheckResult{}, evalErr(rule, err)
		}
		if !res.Allowed {
			return res, nil
		}
	}

	if c.TimeRestrictions != nil {
		if res := CheckTime(c.TimeRestrictions, tx); !res.Allowed {
			return res, nil
		}
	}

	if c.GeographicRestrictions != nil {
		if res := CheckGeographic(c.GeographicRestrictions, tx); !res.Allowed {
			return res, nil
		}
	}

	if c.Expression != "" {
		if e.exprs == nil {
			return domain.CheckResult{}, evalErr(rule, fmt.Errorf("no expression engine configured"))
		}
		violated, err := e.exprs.Violated(rule, tx)
		if err != nil {
			return domain.CheckResult{}, evalErr(rule, err)
		}
		if violated {
			return domain.Deny("Conditional rule violated: "+rule.Name, RiskExpression), nil
		}
	}

	if rule.BenefitProgram != "" && program != nil {
		lctx, cancel := e.bounded(ctx)
		res, err := program(lctx)
		cancel()
		if err != nil {
			return domain.CheckResult{}, evalErr(rule, err)
		}
		// Passing policies may still carry required actions.
		return res, nil
	}

	return domain.Allow(), nil
}

func (e *Evaluator) describe(code string) string {
	if e.describer == nil {
		return "MCC " + code
	}
	return e.describer.Description(code)
}

func (e *Evaluator) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.lookupTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.lookupTimeout)
}

func evalErr(rule *domain.Rule, err error) error {
	return &domain.RuleEvaluationError{RuleID: rule.ID, Cause: err}
}
