// Package rules evaluates a single authorization rule against a transaction.
package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-finance/warden/internal/domain"
)

// ExpressionEngine compiles and evaluates CEL rule expressions.
// A true result means the rule is violated.
type ExpressionEngine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled map[string]*compiledExpression
}

// compiledExpression is a program compiled for one version of a rule.
type compiledExpression struct {
	source  string
	program cel.Program
}

// NewExpressionEngine creates an engine with the transaction variables declared.
func NewExpressionEngine() (*ExpressionEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("tx", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("program", cel.StringType),
		cel.Variable("mcc", cel.StringType),
		cel.Variable("merchant_state", cel.StringType),
		cel.Variable("merchant_country", cel.StringType),
		cel.Variable("wallet_id", cel.StringType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("weekday", cel.IntType),
		cel.Variable("item_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &ExpressionEngine{
		env:      env,
		compiled: make(map[string]*compiledExpression),
	}, nil
}

// Validate compiles an expression without caching it.
func (e *ExpressionEngine) Validate(expr string) error {
	_, err := e.compile(expr)
	return err
}

// Violated evaluates the rule's expression against the transaction.
// Programs are compiled once per rule and recompiled when the expression changes.
func (e *ExpressionEngine) Violated(rule *domain.Rule, tx *domain.TransactionContext) (bool, error) {
	prg, err := e.program(rule)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(activation(tx))
	if err != nil {
		return false, fmt.Errorf("evaluate expression: %w", err)
	}

	v, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("expression returned %s, want bool", out.Type().TypeName())
	}
	return bool(v), nil
}

// Forget drops the compiled program for a rule.
func (e *ExpressionEngine) Forget(ruleID string) {
	e.mu.Lock()
	delete(e.compiled, ruleID)
	e.mu.Unlock()
}

// CompiledCount returns the number of cached programs.
func (e *ExpressionEngine) CompiledCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

func (e *ExpressionEngine) program(rule *domain.Rule) (cel.Program, error) {
	e.mu.RLock()
	c, ok := e.compiled[rule.ID]
	e.mu.RUnlock()
	if ok && c.source == rule.Conditions.Expression {
		return c.program, nil
	}

	prg, err := e.compile(rule.Conditions.Expression)
	if err != nil {
		return nil, fmt.Errorf("%w: rule %s: %v", domain.ErrInvalidRuleDefinition, rule.ID, err)
	}

	e.mu.Lock()
	e.compiled[rule.ID] = &compiledExpression{source: rule.Conditions.Expression, program: prg}
	e.mu.Unlock()

	return prg, nil
}

func (e *ExpressionEngine) compile(expr string) (cel.Program, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}
	return prg, nil
}

func activation(tx *domain.TransactionContext) map[string]any {
	return map[string]any{
		"tx": map[string]any{
			"id":                     tx.ID,
			"program":                tx.Program,
			"amount":                 tx.Amount,
			"merchant_category_code": tx.MerchantCategoryCode,
			"merchant_state":         tx.MerchantState,
			"merchant_country":       tx.MerchantCountry,
			"wallet_id":              tx.WalletID,
			"payee_id":               tx.PayeeID,
		},
		"amount":           tx.Amount,
		"program":          tx.Program,
		"mcc":              tx.MerchantCategoryCode,
		"merchant_state":   tx.MerchantState,
		"merchant_country": tx.MerchantCountry,
		"wallet_id":        tx.WalletID,
		"hour":             int64(tx.Timestamp.Hour()),
		"weekday":          int64(tx.Timestamp.Weekday()),
		"item_count":       int64(len(tx.Items)),
	}
}
