package domain

import (
	"time"
)

// RuleOutcome is the result of evaluating one rule.
type RuleOutcome string

const (
	OutcomePassed RuleOutcome = "PASSED"
	OutcomeFailed RuleOutcome = "FAILED"
)

// MaxRiskScore is the upper bound of every risk score.
const MaxRiskScore = 100

// CheckResult is the uniform result of a restriction checker or program policy.
type CheckResult struct {
	Allowed         bool     `json:"allowed"`
	Reason          string   `json:"reason,omitempty"`
	RiskScore       int      `json:"riskScore"`
	RequiredActions []string `json:"requiredActions,omitempty"`
}

// Allow returns a passing result.
func Allow() CheckResult {
	return CheckResult{Allowed: true}
}

// Deny returns a failing result with a reason and risk contribution.
func Deny(reason string, risk int) CheckResult {
	return CheckResult{Reason: reason, RiskScore: ClampRisk(risk)}
}

// ClampRisk bounds a risk score to [0, MaxRiskScore].
func ClampRisk(risk int) int {
	if risk < 0 {
		return 0
	}
	if risk > MaxRiskScore {
		return MaxRiskScore
	}
	return risk
}

// AppliedRule records how one rule was evaluated.
type AppliedRule struct {
	RuleID    string      `json:"ruleId"`
	RuleName  string      `json:"ruleName"`
	Outcome   RuleOutcome `json:"result"`
	Message   string      `json:"message,omitempty"`
	RiskScore int         `json:"riskScore"`
}

// EvaluationResult is the authorization decision for one transaction.
type EvaluationResult struct {
	TransactionID   string        `json:"transactionId"`
	Approved        bool          `json:"approved"`
	Reasons         []string      `json:"reasons"`
	AppliedRules    []AppliedRule `json:"appliedRules"`
	RiskScore       int           `json:"riskScore"`
	RequiredActions []string      `json:"requiredActions"`
	EvaluatedAt     time.Time     `json:"evaluatedAt"`
}

// AuditRecord is the durable record of one decision.
type AuditRecord struct {
	ID              string        `json:"id"`
	TransactionID   string        `json:"transactionId"`
	Program         string        `json:"program"`
	MCC             string        `json:"merchantCategoryCode"`
	Amount          float64       `json:"amount"`
	Approved        bool          `json:"approved"`
	Reasons         []string      `json:"reasons"`
	RiskScore       int           `json:"riskScore"`
	AppliedRules    []AppliedRule `json:"appliedRules"`
	RequiredActions []string      `json:"requiredActions"`
	EvaluatedAt     time.Time     `json:"evaluatedAt"`
	DurationMs      int64         `json:"durationMs"`
}

// NewAuditRecord builds the audit record for a decision.
func NewAuditRecord(id string, tx *TransactionContext, res *EvaluationResult, took time.Duration) *AuditRecord {
	return &AuditRecord{
		ID:              id,
		TransactionID:   tx.ID,
		Program:         tx.Program,
		MCC:             tx.MerchantCategoryCode,
		Amount:          tx.Amount,
		Approved:        res.Approved,
		Reasons:         res.Reasons,
		RiskScore:       res.RiskScore,
		AppliedRules:    res.AppliedRules,
		RequiredActions: res.RequiredActions,
		EvaluatedAt:     res.EvaluatedAt,
		DurationMs:      took.Milliseconds(),
	}
}
