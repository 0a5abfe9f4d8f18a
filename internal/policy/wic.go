package policy

import (
	"context"
	"fmt"

	"github.com/opensource-finance/warden/internal/domain"
)

// WIC restricts purchases to approved items at authorized vendors in the issuing state.
type WIC struct {
	cfg  WICConfig
	refs domain.ReferenceStore
}

// NewWIC creates the WIC policy.
func NewWIC(cfg WICConfig, refs domain.ReferenceStore) *WIC {
	return &WIC{cfg: cfg, refs: refs}
}

func (p *WIC) Program() string { return ProgramWIC }

// Check requires every item to carry a UPC approved for the issuing state.
// A purchase without items cannot be verified and is denied.
func (p *WIC) Check(ctx context.Context, tx *domain.TransactionContext) (domain.CheckResult, error) {
	if len(p.cfg.VendorMCCs) > 0 && !contains(p.cfg.VendorMCCs, tx.MerchantCategoryCode) {
		return domain.Deny("WIC can only be used at authorized WIC vendors", p.cfg.VendorRisk), nil
	}

	// Only a merchant that identifies itself can be checked for WIC authorization.
	if tx.MerchantID != "" && !tx.WICAuthorized {
		return domain.Deny("Merchant is not WIC authorized", p.cfg.VendorRisk), nil
	}

	if tx.State != "" && tx.MerchantState != "" && tx.State != tx.MerchantState {
		return domain.Deny("WIC benefits cannot be used outside of issuing state", p.cfg.VendorRisk), nil
	}

	notApproved := domain.Deny("Contains non-WIC approved items", p.cfg.ItemRisk)

	upcs := make([]string, 0, len(tx.Items))
	seen := make(map[string]struct{}, len(tx.Items))
	for _, item := range tx.Items {
		if item.UPCCode == "" {
			return notApproved, nil
		}
		if _, ok := seen[item.UPCCode]; ok {
			continue
		}
		seen[item.UPCCode] = struct{}{}
		upcs = append(upcs, item.UPCCode)
	}
	if len(upcs) == 0 {
		return notApproved, nil
	}

	approved, err := p.refs.FetchMCCApprovedItems(ctx, upcs, tx.IssuingState())
	if err != nil {
		return domain.CheckResult{}, fmt.Errorf("failed to look up WIC items: %w", err)
	}
	if approved != len(upcs) {
		return notApproved, nil
	}
	return domain.Allow(), nil
}
