package rules

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
)

func describeStub(code string) string {
	if code == "5813" {
		return "Drinking Places (Alcoholic Beverages)"
	}
	return "MCC " + code
}

func TestCheckMCC(t *testing.T) {
	tx := &domain.TransactionContext{Program: "SNAP", MerchantCategoryCode: "5813"}

	tests := []struct {
		name    string
		rule    domain.Rule
		allowed bool
	}{
		{"WhitelistMiss", domain.Rule{Type: domain.RuleTypeWhitelist, BenefitProgram: "SNAP", MCCRestrictions: []string{"5411", "5422"}}, false},
		{"WhitelistHit", domain.Rule{Type: domain.RuleTypeWhitelist, MCCRestrictions: []string{"5813"}}, true},
		{"BlacklistHit", domain.Rule{Type: domain.RuleTypeBlacklist, MCCRestrictions: []string{"5813"}}, false},
		{"BlacklistMiss", domain.Rule{Type: domain.RuleTypeBlacklist, MCCRestrictions: []string{"7995"}}, true},
		{"ConditionalIgnoresList", domain.Rule{Type: domain.RuleTypeConditional, MCCRestrictions: []string{"5411"}}, true},
		{"EmptyList", domain.Rule{Type: domain.RuleTypeWhitelist}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CheckMCC(&tt.rule, tx, describeStub)
			if res.Allowed != tt.allowed {
				t.Fatalf("allowed = %v, want %v", res.Allowed, tt.allowed)
			}
			if !res.Allowed && res.RiskScore != RiskMCC {
				t.Errorf("risk = %d, want %d", res.RiskScore, RiskMCC)
			}
		})
	}

	res := CheckMCC(&tests[0].rule, tx, describeStub)
	want := "MCC 5813 (Drinking Places (Alcoholic Beverages)) not allowed for SNAP"
	if res.Reason != want {
		t.Errorf("reason = %q, want %q", res.Reason, want)
	}

	global := domain.Rule{Type: domain.RuleTypeBlacklist, MCCRestrictions: []string{"5813"}}
	if res := CheckMCC(&global, tx, describeStub); !strings.HasSuffix(res.Reason, "for SNAP") {
		t.Errorf("global rule should name the transaction's program, got %q", res.Reason)
	}
}

func TestCheckAmount(t *testing.T) {
	tx := &domain.TransactionContext{Amount: 600}

	if res := CheckAmount(600, tx); !res.Allowed {
		t.Error("amount equal to the limit should pass")
	}

	res := CheckAmount(500, tx)
	if res.Allowed {
		t.Fatal("expected failure above the limit")
	}
	if res.Reason != "Amount exceeds limit: 600 > 500" {
		t.Errorf("unexpected reason %q", res.Reason)
	}
	if res.RiskScore != RiskAmount {
		t.Errorf("risk = %d, want %d", res.RiskScore, RiskAmount)
	}
}

func TestCheckTime(t *testing.T) {
	// 2026-03-02 is a Monday.
	at := func(hour int) *domain.TransactionContext {
		return &domain.TransactionContext{Timestamp: time.Date(2026, 3, 2, hour, 15, 0, 0, time.UTC)}
	}
	r := &domain.TimeRestrictions{AllowedHours: []int{6, 22}, AllowedDays: []int{1, 2, 3, 4, 5}}

	for _, h := range []int{6, 12, 22} {
		if res := CheckTime(r, at(h)); !res.Allowed {
			t.Errorf("hour %d should be allowed", h)
		}
	}
	for _, h := range []int{0, 5, 23} {
		res := CheckTime(r, at(h))
		if res.Allowed {
			t.Errorf("hour %d should be blocked", h)
		}
		if res.RiskScore != RiskTime {
			t.Errorf("risk = %d, want %d", res.RiskScore, RiskTime)
		}
	}

	sunday := &domain.TransactionContext{Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	if res := CheckTime(r, sunday); res.Allowed {
		t.Error("Sunday should be blocked")
	}

	// Hours are read in the timestamp's location.
	ny, err := time.LoadLocation("America/New_York")
	if err == nil {
		local := &domain.TransactionContext{Timestamp: time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC).In(ny)}
		if res := CheckTime(&domain.TimeRestrictions{AllowedHours: []int{20, 23}}, local); !res.Allowed {
			t.Error("03:00 UTC is 22:00 in New York and should be allowed")
		}
	}
}

func TestCheckGeographic(t *testing.T) {
	base := domain.TransactionContext{
		MerchantState:   "CA",
		MerchantCountry: "US",
		Latitude:        34.0522, Longitude: -118.2437, // Los Angeles
		HomeLatitude: 37.7749, HomeLongitude: -122.4194, // San Francisco
	}

	tests := []struct {
		name    string
		r       domain.GeoRestrictions
		mutate  func(*domain.TransactionContext)
		allowed bool
	}{
		{"StateAllowed", domain.GeoRestrictions{AllowedStates: []string{"CA", "NV"}}, nil, true},
		{"StateNotAllowed", domain.GeoRestrictions{AllowedStates: []string{"NV"}}, nil, false},
		{"CountryBlocked", domain.GeoRestrictions{BlockedCountries: []string{"US"}}, nil, false},
		{"CountryNotBlocked", domain.GeoRestrictions{BlockedCountries: []string{"KP"}}, nil, true},
		{"WithinDistance", domain.GeoRestrictions{MaxDistanceMiles: 400}, nil, true},
		{"BeyondDistance", domain.GeoRestrictions{MaxDistanceMiles: 300}, nil, false},
		{"UnknownLocation", domain.GeoRestrictions{MaxDistanceMiles: 1}, func(tx *domain.TransactionContext) {
			tx.Latitude, tx.Longitude = 0, 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := base
			if tt.mutate != nil {
				tt.mutate(&tx)
			}
			res := CheckGeographic(&tt.r, &tx)
			if res.Allowed != tt.allowed {
				t.Errorf("allowed = %v, want %v", res.Allowed, tt.allowed)
			}
			if !res.Allowed && res.Reason != "Transaction outside allowed geographic area" {
				t.Errorf("unexpected reason %q", res.Reason)
			}
		})
	}
}

func TestHaversine(t *testing.T) {
	// Los Angeles to San Francisco is roughly 347 miles.
	d := Haversine(34.0522, -118.2437, 37.7749, -122.4194)
	if math.Abs(d-347) > 3 {
		t.Errorf("distance = %.1f, want ~347", d)
	}
	if Haversine(10, 10, 10, 10) != 0 {
		t.Error("distance to self should be 0")
	}
}
