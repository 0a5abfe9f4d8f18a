package rules

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
)

func exprRule(id, expr string) *domain.Rule {
	return &domain.Rule{
		ID:             id,
		Code:           id,
		Name:           "Expression " + id,
		Type:           domain.RuleTypeConditional,
		ResponseAction: domain.ActionWarn,
		Conditions:     domain.Conditions{Expression: expr},
	}
}

func TestEngineCreation(t *testing.T) {
	engine, err := NewExpressionEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if engine.CompiledCount() != 0 {
		t.Errorf("expected 0 compiled programs, got %d", engine.CompiledCount())
	}
}

func TestValidateExpression(t *testing.T) {
	engine, _ := NewExpressionEngine()

	if err := engine.Validate("amount > 100.0"); err != nil {
		t.Errorf("expected valid expression, got %v", err)
	}
	if err := engine.Validate("this is not valid CEL !!!"); err == nil {
		t.Error("expected error for invalid CEL expression")
	}
	if err := engine.Validate("amount * 2.0"); err == nil {
		t.Error("expected error for non-bool expression")
	}
	if engine.CompiledCount() != 0 {
		t.Error("Validate must not cache programs")
	}
}

func TestExpressionViolated(t *testing.T) {
	engine, _ := NewExpressionEngine()

	tx := &domain.TransactionContext{
		ID:                   "tx-1",
		Program:              "SNAP",
		Amount:               250,
		MerchantCategoryCode: "5411",
		MerchantState:        "CA",
		WalletID:             "w-1",
		Timestamp:            time.Date(2026, 2, 1, 23, 30, 0, 0, time.UTC), // Sunday
		Items:                []domain.LineItem{{Description: "bread"}, {Description: "milk"}},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"amount > 100.0", true},
		{"amount > 1000.0", false},
		{`mcc == "5411" && merchant_state == "CA"`, true},
		{"hour >= 22 || hour < 6", true},
		{"weekday == 0", true},
		{"item_count > 5", false},
		{`tx.program == "SNAP"`, true},
	}

	for i, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := engine.Violated(exprRule(string(rune('a'+i)), tt.expr), tx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Violated(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestExpressionRecompilesOnChange(t *testing.T) {
	engine, _ := NewExpressionEngine()
	tx := &domain.TransactionContext{Amount: 50}

	rule := exprRule("r1", "amount > 10.0")
	if v, _ := engine.Violated(rule, tx); !v {
		t.Fatal("expected violation")
	}

	rule.Conditions.Expression = "amount > 100.0"
	if v, _ := engine.Violated(rule, tx); v {
		t.Error("expected stale program to be replaced")
	}
	if engine.CompiledCount() != 1 {
		t.Errorf("expected 1 compiled program, got %d", engine.CompiledCount())
	}

	engine.Forget("r1")
	if engine.CompiledCount() != 0 {
		t.Error("expected program to be forgotten")
	}
}

func TestExpressionInvalidRule(t *testing.T) {
	engine, _ := NewExpressionEngine()

	_, err := engine.Violated(exprRule("bad", "amount >"), &domain.TransactionContext{})
	if !errors.Is(err, domain.ErrInvalidRuleDefinition) {
		t.Errorf("expected ErrInvalidRuleDefinition, got %v", err)
	}
}

func TestExpressionConcurrent(t *testing.T) {
	engine, _ := NewExpressionEngine()
	rule := exprRule("shared", "amount > 10.0")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tx := &domain.TransactionContext{Amount: float64(i)}
			got, err := engine.Violated(rule, tx)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if got != (i > 10) {
				t.Errorf("amount %d: got %v", i, got)
			}
		}(i)
	}
	wg.Wait()
}
