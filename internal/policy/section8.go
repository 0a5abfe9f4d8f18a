package policy

import (
	"context"
	"fmt"

	"github.com/opensource-finance/warden/internal/domain"
)

// Section8 only pays registered, active landlords.
type Section8 struct {
	cfg  Section8Config
	refs domain.ReferenceStore
}

// NewSection8 creates the Section 8 housing policy.
func NewSection8(cfg Section8Config, refs domain.ReferenceStore) *Section8 {
	return &Section8{cfg: cfg, refs: refs}
}

func (p *Section8) Program() string { return ProgramSection8 }

func (p *Section8) Check(ctx context.Context, tx *domain.TransactionContext) (domain.CheckResult, error) {
	if tx.PayeeID == "" {
		return domain.Deny("Payment must be to approved landlord", p.cfg.PayeeRisk), nil
	}

	ok, err := p.refs.FetchLandlordStatus(ctx, tx.PayeeID)
	if err != nil {
		return domain.CheckResult{}, fmt.Errorf("failed to verify landlord: %w", err)
	}
	if !ok {
		return domain.Deny("Payment must be to approved landlord", p.cfg.PayeeRisk), nil
	}
	return domain.Allow(), nil
}
