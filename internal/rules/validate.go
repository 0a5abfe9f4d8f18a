package rules

import (
	"errors"
	"fmt"
	"sync"

	"github.com/opensource-finance/warden/internal/domain"
	"github.com/opensource-finance/warden/internal/velocity"
)

var validationEngine = sync.OnceValues(NewExpressionEngine)

// Validate reports whether a rule can be evaluated. Failures wrap
// domain.ErrInvalidRuleDefinition.
func Validate(rule *domain.Rule) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !rule.Type.Valid() {
		add("unknown rule type %q", rule.Type)
	}
	if !rule.ResponseAction.Valid() {
		add("unknown response action %q", rule.ResponseAction)
	}
	if rule.Type == domain.RuleTypeWhitelist && len(rule.MCCRestrictions) == 0 {
		add("whitelist rule has no merchant codes")
	}

	c := rule.Conditions
	if c.AmountLimit != nil && *c.AmountLimit < 0 {
		add("amount_limit must not be negative")
	}

	if v := c.VelocityCheck; v != nil {
		if _, err := velocity.ParseWindow(v.Window); err != nil {
			add("velocity_check: %v", err)
		}
		if v.MaxCount <= 0 && v.MaxAmount <= 0 {
			add("velocity_check needs max_count or max_amount")
		}
		if v.MaxCount < 0 || v.MaxAmount < 0 {
			add("velocity_check limits must not be negative")
		}
	}

	if tr := c.TimeRestrictions; tr != nil {
		if h := tr.AllowedHours; len(h) > 0 {
			if len(h) != 2 || h[0] < 0 || h[1] > 23 || h[0] > h[1] {
				add("allowed_hours must be [start, end] within 0-23")
			}
		}
		for _, d := range tr.AllowedDays {
			if d < 0 || d > 6 {
				add("allowed_days entry %d outside 0-6", d)
			}
		}
	}

	if g := c.GeographicRestrictions; g != nil && g.MaxDistanceMiles < 0 {
		add("max_distance_miles must not be negative")
	}

	if c.Expression != "" {
		engine, err := validationEngine()
		if err != nil {
			return err
		}
		if err := engine.Validate(c.Expression); err != nil {
			add("expression: %v", err)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: rule %s: %w", domain.ErrInvalidRuleDefinition, rule.Code, errors.Join(errs...))
}
