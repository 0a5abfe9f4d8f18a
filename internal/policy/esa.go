package policy

import (
	"context"

	"github.com/opensource-finance/warden/internal/domain"
)

// ESA limits education savings accounts to educational merchants.
type ESA struct {
	cfg ESAConfig
}

// NewESA creates the school choice ESA policy.
func NewESA(cfg ESAConfig) *ESA {
	return &ESA{cfg: cfg}
}

func (p *ESA) Program() string { return ProgramESA }

func (p *ESA) Check(ctx context.Context, tx *domain.TransactionContext) (domain.CheckResult, error) {
	if !contains(p.cfg.AllowedMCCs, tx.MerchantCategoryCode) {
		return domain.Deny("School Choice funds can only be used for educational expenses", p.cfg.MerchantRisk), nil
	}
	return domain.Allow(), nil
}
