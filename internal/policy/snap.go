package policy

import (
	"context"
	"strings"

	"github.com/opensource-finance/warden/internal/domain"
)

// SNAP restricts purchases to eligible food at authorized food retailers.
type SNAP struct {
	cfg      SNAPConfig
	keywords keywordMatcher
}

// NewSNAP creates the SNAP policy.
func NewSNAP(cfg SNAPConfig) *SNAP {
	return &SNAP{cfg: cfg, keywords: newKeywordMatcher(cfg.ProhibitedItems)}
}

func (p *SNAP) Program() string { return ProgramSNAP }

func (p *SNAP) Check(ctx context.Context, tx *domain.TransactionContext) (domain.CheckResult, error) {
	if len(p.cfg.AllowedMCCs) > 0 && !contains(p.cfg.AllowedMCCs, tx.MerchantCategoryCode) {
		return domain.Deny("SNAP benefits can only be used at authorized food retailers", p.cfg.MerchantRisk), nil
	}

	if tx.MerchantType != "" && contains(p.cfg.ProhibitedMerchants, strings.ToUpper(tx.MerchantType)) {
		return domain.Deny("SNAP cannot be used at "+strings.ToUpper(tx.MerchantType), p.cfg.MerchantRisk), nil
	}

	if tx.HasHotFoodBar {
		return domain.Deny("SNAP cannot be used for hot/prepared foods", p.cfg.MerchantRisk), nil
	}

	if tx.MerchantCategoryCode == p.cfg.ConvenienceStoreMCC && len(p.cfg.ConvenienceStoreHours) == 2 {
		h := tx.Timestamp.Hour()
		if h < p.cfg.ConvenienceStoreHours[0] || h > p.cfg.ConvenienceStoreHours[1] {
			return domain.Deny("SNAP purchases at convenience stores restricted during these hours", p.cfg.MerchantRisk), nil
		}
	}

	for _, item := range tx.Items {
		if item.IsHot || item.IsPrepared {
			return domain.Deny("SNAP cannot be used for hot/prepared foods", p.cfg.ItemRisk), nil
		}
	}

	if item, ok := p.keywords.match(tx.Items); ok {
		return domain.Deny("Prohibited item: "+item.Description, p.cfg.ItemRisk), nil
	}

	return domain.Allow(), nil
}
