package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/opensource-finance/warden/internal/domain"
	"github.com/opensource-finance/warden/internal/rules"
)

// AreaRestrictedReason is the denial reason for an area stored without one.
const AreaRestrictedReason = "Location is restricted for this program"

// Areas denies transactions at merchants inside a program's restricted areas.
// It runs alongside the program policy, including for programs without one.
type Areas struct {
	cfg   AreaConfig
	store domain.AreaStore
}

// NewAreas creates the restricted-area check.
func NewAreas(cfg AreaConfig, store domain.AreaStore) *Areas {
	return &Areas{cfg: cfg, store: store}
}

// Check denies the transaction when the merchant lies in any restricted area
// for the program and merchant code. A transaction without coordinates,
// ZIP code or city is not looked up.
func (a *Areas) Check(ctx context.Context, tx *domain.TransactionContext) (domain.CheckResult, error) {
	if !locatable(tx) {
		return domain.Allow(), nil
	}

	areas, err := a.store.FetchRestrictedAreas(ctx, tx.Program, tx.MerchantCategoryCode)
	if err != nil {
		return domain.CheckResult{}, fmt.Errorf("failed to look up restricted areas: %w", err)
	}
	for _, area := range areas {
		if !InArea(tx, area) {
			continue
		}
		reason := area.Reason
		if reason == "" {
			reason = AreaRestrictedReason
		}
		return domain.Deny(reason, a.cfg.Risk), nil
	}
	return domain.Allow(), nil
}

// InArea reports whether the transaction's merchant lies inside the area.
// Unknown merchant attributes never match.
func InArea(tx *domain.TransactionContext, area domain.RestrictedArea) bool {
	switch area.Type {
	case domain.AreaRadius:
		if tx.Latitude == 0 && tx.Longitude == 0 {
			return false
		}
		return rules.Haversine(tx.Latitude, tx.Longitude, area.CenterLat, area.CenterLng) <= area.RadiusMiles
	case domain.AreaZipCode:
		return tx.MerchantZip != "" && strings.TrimSpace(tx.MerchantZip) == area.ZipCode
	case domain.AreaCity:
		return tx.MerchantCity != "" && strings.EqualFold(strings.TrimSpace(tx.MerchantCity), area.City)
	}
	return false
}

func locatable(tx *domain.TransactionContext) bool {
	return tx.Latitude != 0 || tx.Longitude != 0 || tx.MerchantZip != "" || tx.MerchantCity != ""
}
