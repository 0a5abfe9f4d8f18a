package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRepositoryUnavailable means rules could not be read within the lookup budget.
	ErrRepositoryUnavailable = errors.New("rule repository unavailable")

	// ErrInvalidRuleDefinition means a persisted rule cannot be evaluated.
	ErrInvalidRuleDefinition = errors.New("invalid rule definition")

	// ErrAuditWriteFailure means the decision could not be durably recorded.
	ErrAuditWriteFailure = errors.New("audit write failure")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for malformed arguments.
	ErrInvalidInput = errors.New("invalid input")
)

// RuleEvaluationError wraps a checker failure for a single rule.
// It never escapes Evaluate; the rule is recorded as failed instead.
type RuleEvaluationError struct {
	RuleID string
	Cause  error
}

func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("rule %s: evaluation error: %v", e.RuleID, e.Cause)
}

func (e *RuleEvaluationError) Unwrap() error {
	return e.Cause
}
