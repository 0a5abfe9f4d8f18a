// Package decision folds per-rule outcomes into an authorization decision.
package decision

import (
	"time"

	"github.com/opensource-finance/warden/internal/domain"
)

// RuleEvaluationErrorMessage is recorded for a rule whose checkers could not complete.
const RuleEvaluationErrorMessage = "Rule evaluation error"

// Accumulator holds the running decision while rules are evaluated.
// It starts approved with zero risk; risk only ever rises to the maximum
// contribution seen.
type Accumulator struct {
	txID     string
	approved bool
	reasons  []string
	applied  []domain.AppliedRule
	risk     int
	actions  []string
	seen     map[string]struct{}
	halted   bool
}

// New creates an approved, zero-risk accumulator.
func New(txID string) *Accumulator {
	return &Accumulator{
		txID:     txID,
		approved: true,
		reasons:  []string{},
		applied:  []domain.AppliedRule{},
		actions:  []string{},
		seen:     make(map[string]struct{}),
	}
}

// Step records one rule outcome and reports whether evaluation must stop.
// A failed BLOCK rule halts; FLAG and WARN failures let evaluation continue.
func (a *Accumulator) Step(rule *domain.Rule, res domain.CheckResult) bool {
	if a.halted {
		return true
	}

	for _, action := range res.RequiredActions {
		a.require(action)
	}

	if res.Allowed {
		a.applied = append(a.applied, domain.AppliedRule{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Outcome:  domain.OutcomePassed,
		})
		return false
	}

	risk := domain.ClampRisk(res.RiskScore)
	a.approved = false
	a.reasons = append(a.reasons, res.Reason)
	a.risk = max(a.risk, risk)
	a.applied = append(a.applied, domain.AppliedRule{
		RuleID:    rule.ID,
		RuleName:  rule.Name,
		Outcome:   domain.OutcomeFailed,
		Message:   res.Reason,
		RiskScore: risk,
	})

	if rule.ResponseAction == domain.ActionFlag {
		a.require(domain.RequiredActionManualReview)
	}
	if rule.ResponseAction == domain.ActionBlock {
		a.halted = true
	}
	return a.halted
}

// StepError records a rule whose evaluation failed. It fails closed.
func (a *Accumulator) StepError(rule *domain.Rule) bool {
	return a.Step(rule, domain.Deny(RuleEvaluationErrorMessage, domain.MaxRiskScore))
}

// Deny records a decision-level denial that is not tied to a rule.
func (a *Accumulator) Deny(reason string, risk int) {
	a.approved = false
	a.reasons = append(a.reasons, reason)
	a.risk = max(a.risk, domain.ClampRisk(risk))
}

// Halted reports whether a BLOCK rule has stopped evaluation.
func (a *Accumulator) Halted() bool {
	return a.halted
}

// Result returns a snapshot of the decision. Later steps do not affect it.
func (a *Accumulator) Result(at time.Time) *domain.EvaluationResult {
	return &domain.EvaluationResult{
		TransactionID:   a.txID,
		Approved:        a.approved,
		Reasons:         append([]string{}, a.reasons...),
		AppliedRules:    append([]domain.AppliedRule{}, a.applied...),
		RiskScore:       a.risk,
		RequiredActions: append([]string{}, a.actions...),
		EvaluatedAt:     at,
	}
}

func (a *Accumulator) require(action string) {
	if _, ok := a.seen[action]; ok {
		return
	}
	a.seen[action] = struct{}{}
	a.actions = append(a.actions, action)
}

// StepFunc evaluates one rule.
type StepFunc func(rule *domain.Rule) (domain.CheckResult, error)

// Fold evaluates rules in order until one halts. Errors from step become
// failed outcomes with maximum risk.
func Fold(acc *Accumulator, rules []domain.Rule, step StepFunc) *Accumulator {
	for i := range rules {
		rule := &rules[i]
		res, err := step(rule)
		var halt bool
		if err != nil {
			halt = acc.StepError(rule)
		} else {
			halt = acc.Step(rule, res)
		}
		if halt {
			break
		}
	}
	return acc
}
