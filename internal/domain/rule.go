package domain

import "time"

// RuleType determines how a rule's MCC restriction list is interpreted.
type RuleType string

const (
	// RuleTypeWhitelist passes only when the merchant code is listed.
	RuleTypeWhitelist RuleType = "WHITELIST"

	// RuleTypeBlacklist passes only when the merchant code is not listed.
	RuleTypeBlacklist RuleType = "BLACKLIST"

	// RuleTypeConditional ignores the MCC list and relies on conditions only.
	RuleTypeConditional RuleType = "CONDITIONAL"
)

// Valid reports whether t is a known rule type.
func (t RuleType) Valid() bool {
	switch t {
	case RuleTypeWhitelist, RuleTypeBlacklist, RuleTypeConditional:
		return true
	}
	return false
}

// ResponseAction is what happens when a rule fails.
type ResponseAction string

const (
	// ActionBlock denies the transaction and stops evaluation.
	ActionBlock ResponseAction = "BLOCK"

	// ActionFlag denies the transaction and requests manual review.
	ActionFlag ResponseAction = "FLAG"

	// ActionWarn denies the transaction and keeps evaluating.
	ActionWarn ResponseAction = "WARN"
)

// Valid reports whether a is a known response action.
func (a ResponseAction) Valid() bool {
	switch a {
	case ActionBlock, ActionFlag, ActionWarn:
		return true
	}
	return false
}

// RuleCategory groups rules for administration.
type RuleCategory string

const (
	CategoryFederalBenefits RuleCategory = "federal_benefits"
	CategoryStateBenefits   RuleCategory = "state_benefits"
	CategoryLocalBenefits   RuleCategory = "local_benefits"
	CategoryCompliance      RuleCategory = "compliance"
	CategoryVelocityLimits  RuleCategory = "velocity_limits"
	CategoryFraudDetection  RuleCategory = "fraud_detection"
	CategoryGlobal          RuleCategory = "global"
)

// RequiredActionManualReview is added to a result when a FLAG rule fails.
const RequiredActionManualReview = "MANUAL_REVIEW"

// Rule is a persisted authorization rule.
// An empty BenefitProgram makes the rule apply to every program.
type Rule struct {
	ID              string         `json:"id"`
	Code            string         `json:"ruleCode"`
	Name            string         `json:"ruleName"`
	Category        RuleCategory   `json:"ruleCategory"`
	Type            RuleType       `json:"ruleType"`
	BenefitProgram  string         `json:"benefitProgram,omitempty"`
	MCCRestrictions []string       `json:"mccRestrictions,omitempty"`
	Conditions      Conditions     `json:"conditions"`
	ResponseAction  ResponseAction `json:"responseAction"`
	Priority        int            `json:"priority"`
	Active          bool           `json:"isActive"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Global reports whether the rule applies to all programs.
func (r *Rule) Global() bool {
	return r.BenefitProgram == ""
}

// Conditions are the optional restriction parameters of a rule.
// Only populated fields are checked.
type Conditions struct {
	AmountLimit            *float64          `json:"amount_limit,omitempty"`
	VelocityCheck          *VelocityCheck    `json:"velocity_check,omitempty"`
	TimeRestrictions       *TimeRestrictions `json:"time_restrictions,omitempty"`
	GeographicRestrictions *GeoRestrictions  `json:"geographic_restrictions,omitempty"`

	// Expression is a CEL predicate; true means the rule is violated.
	Expression string `json:"expression,omitempty"`
}

// Empty reports whether no condition is set.
func (c Conditions) Empty() bool {
	return c.AmountLimit == nil && c.VelocityCheck == nil && c.TimeRestrictions == nil &&
		c.GeographicRestrictions == nil && c.Expression == ""
}

// VelocityCheck limits how often and how much a wallet spends in a window.
// Window accepts "24 hours", "7 days" or a Go duration such as "30m".
type VelocityCheck struct {
	Window    string  `json:"window"`
	MaxCount  int     `json:"max_count,omitempty"`
	MaxAmount float64 `json:"max_amount,omitempty"`
}

// TimeRestrictions limit transactions to an hour range and set of weekdays.
// AllowedHours is [start, end] inclusive; AllowedDays uses 0 for Sunday.
type TimeRestrictions struct {
	AllowedHours []int `json:"allowed_hours,omitempty"`
	AllowedDays  []int `json:"allowed_days,omitempty"`
}

// GeoRestrictions limit where a transaction may take place.
type GeoRestrictions struct {
	AllowedStates    []string `json:"allowed_states,omitempty"`
	BlockedCountries []string `json:"blocked_countries,omitempty"`
	MaxDistanceMiles float64  `json:"max_distance_miles,omitempty"`
}

// RulePatch is a soft update. Nil fields are left unchanged.
type RulePatch struct {
	Conditions      *Conditions `json:"conditions,omitempty"`
	MCCRestrictions *[]string   `json:"mccRestrictions,omitempty"`
	Active          *bool       `json:"isActive,omitempty"`
	Priority        *int        `json:"priority,omitempty"`
}

// Apply returns a copy of r with the patch applied.
func (p RulePatch) Apply(r Rule) Rule {
	if p.Conditions != nil {
		r.Conditions = *p.Conditions
	}
	if p.MCCRestrictions != nil {
		r.MCCRestrictions = append([]string(nil), (*p.MCCRestrictions)...)
	}
	if p.Active != nil {
		r.Active = *p.Active
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	return r
}
