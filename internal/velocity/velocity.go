// Package velocity checks rolling-window spend and count limits.
package velocity

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
)

// RiskScore is the contribution of a failed velocity check.
const RiskScore = 70

// Service checks velocity limits against completed transaction history.
type Service struct {
	history domain.TransactionHistory
}

// NewService creates a new velocity service.
func NewService(history domain.TransactionHistory) *Service {
	return &Service{history: history}
}

// Check fails when the wallet has already made max_count completed transactions
// in the window, or when this transaction would take its total past max_amount.
// The window ends at the transaction's timestamp; later history is ignored.
func (s *Service) Check(ctx context.Context, limit *domain.VelocityCheck, tx *domain.TransactionContext) (domain.CheckResult, error) {
	if tx.WalletID == "" {
		return domain.CheckResult{}, fmt.Errorf("%w: wallet id is required for velocity checks", domain.ErrInvalidInput)
	}

	window, err := ParseWindow(limit.Window)
	if err != nil {
		return domain.CheckResult{}, err
	}

	count, total, err := s.history.CompletedTotals(ctx, tx.WalletID, tx.Timestamp.Add(-window), tx.Timestamp)
	if err != nil {
		return domain.CheckResult{}, fmt.Errorf("failed to read velocity totals: %w", err)
	}

	if limit.MaxCount > 0 && count >= int64(limit.MaxCount) {
		return domain.Deny("Velocity limit exceeded", RiskScore), nil
	}
	if limit.MaxAmount > 0 && total+tx.Amount > limit.MaxAmount {
		return domain.Deny("Velocity limit exceeded", RiskScore), nil
	}
	return domain.Allow(), nil
}

var windowUnits = map[string]time.Duration{
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
	"month":  30 * 24 * time.Hour,
}

// ParseWindow accepts interval strings such as "24 hours" or "7 days"
// as well as Go durations such as "90m".
func ParseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("%w: empty velocity window", domain.ErrInvalidRuleDefinition)
	}

	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("%w: velocity window must be positive", domain.ErrInvalidRuleDefinition)
		}
		return d, nil
	}

	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, fmt.Errorf("%w: invalid velocity window %q", domain.ErrInvalidRuleDefinition, s)
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid velocity window %q", domain.ErrInvalidRuleDefinition, s)
	}

	unit, ok := windowUnits[strings.TrimSuffix(fields[1], "s")]
	if !ok {
		return 0, fmt.Errorf("%w: unknown velocity window unit %q", domain.ErrInvalidRuleDefinition, fields[1])
	}
	return time.Duration(n) * unit, nil
}
