package rules

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/opensource-finance/warden/internal/domain"
)

// Risk contributions of the generic checkers.
const (
	RiskMCC        = 80
	RiskAmount     = 60
	RiskVelocity   = 70
	RiskTime       = 40
	RiskGeographic = 50
	RiskExpression = 50
)

// earthRadiusMiles is the mean Earth radius used for distance checks.
const earthRadiusMiles = 3959.0

// CheckMCC applies a WHITELIST or BLACKLIST rule's merchant code list.
// CONDITIONAL rules and rules with an empty list always pass.
func CheckMCC(rule *domain.Rule, tx *domain.TransactionContext, describe func(string) string) domain.CheckResult {
	if len(rule.MCCRestrictions) == 0 {
		return domain.Allow()
	}

	listed := slices.Contains(rule.MCCRestrictions, tx.MerchantCategoryCode)

	var allowed bool
	switch rule.Type {
	case domain.RuleTypeWhitelist:
		allowed = listed
	case domain.RuleTypeBlacklist:
		allowed = !listed
	default:
		allowed = true
	}
	if allowed {
		return domain.Allow()
	}

	program := rule.BenefitProgram
	if program == "" {
		program = tx.Program
	}
	code := tx.MerchantCategoryCode
	return domain.Deny(fmt.Sprintf("MCC %s (%s) not allowed for %s", code, describe(code), program), RiskMCC)
}

// CheckAmount fails when the amount is strictly above the limit.
func CheckAmount(limit float64, tx *domain.TransactionContext) domain.CheckResult {
	if tx.Amount > limit {
		return domain.Deny(fmt.Sprintf("Amount exceeds limit: %s > %s", formatAmount(tx.Amount), formatAmount(limit)), RiskAmount)
	}
	return domain.Allow()
}

// CheckTime fails outside the inclusive hour range or on a day not listed.
// Hours and weekdays are read in the timestamp's own location.
func CheckTime(r *domain.TimeRestrictions, tx *domain.TransactionContext) domain.CheckResult {
	hour := tx.Timestamp.Hour()
	day := int(tx.Timestamp.Weekday())

	if len(r.AllowedHours) == 2 {
		if hour < r.AllowedHours[0] || hour > r.AllowedHours[1] {
			return domain.Deny("Transaction outside allowed time window", RiskTime)
		}
	}
	if len(r.AllowedDays) > 0 && !slices.Contains(r.AllowedDays, day) {
		return domain.Deny("Transaction outside allowed time window", RiskTime)
	}
	return domain.Allow()
}

// CheckGeographic applies state, country and distance-from-home limits.
// The distance limit is skipped when either location is unknown.
func CheckGeographic(r *domain.GeoRestrictions, tx *domain.TransactionContext) domain.CheckResult {
	deny := domain.Deny("Transaction outside allowed geographic area", RiskGeographic)

	if len(r.AllowedStates) > 0 && !slices.Contains(r.AllowedStates, tx.MerchantState) {
		return deny
	}
	if slices.Contains(r.BlockedCountries, tx.MerchantCountry) && tx.MerchantCountry != "" {
		return deny
	}
	if r.MaxDistanceMiles > 0 && tx.HasLocation() {
		d := Haversine(tx.Latitude, tx.Longitude, tx.HomeLatitude, tx.HomeLongitude)
		if d > r.MaxDistanceMiles {
			return deny
		}
	}
	return domain.Allow()
}

// Haversine returns the great-circle distance in miles between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMiles * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// formatAmount prints 600 as "600" and 12.5 as "12.5".
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
