package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/warden/internal/domain"
	"github.com/opensource-finance/warden/internal/policy"
	"github.com/opensource-finance/warden/internal/rules"
)

// Admin mutates rules. Every mutation invalidates the local cache before
// returning and then tells peers through the event bus.
type Admin struct {
	store     domain.RuleStore
	source    *RuleSource
	publisher domain.EventBus
	compiled  *rules.ExpressionEngine
}

// AdminOption configures an Admin.
type AdminOption func(*Admin)

// WithCompiledRules drops a rule's compiled expression whenever the rule
// changes. It is recompiled on next use if the rule is still active.
func WithCompiledRules(e *rules.ExpressionEngine) AdminOption {
	return func(a *Admin) {
		a.compiled = e
	}
}

// NewAdmin creates an admin. A nil bus disables peer notification.
func NewAdmin(store domain.RuleStore, source *RuleSource, bus domain.EventBus, opts ...AdminOption) *Admin {
	a := &Admin{store: store, source: source, publisher: bus}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddRule validates and persists a new rule.
func (a *Admin) AddRule(ctx context.Context, rule *domain.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule is required", domain.ErrInvalidInput)
	}
	if err := rules.Validate(rule); err != nil {
		return err
	}
	if err := a.store.InsertRule(ctx, rule); err != nil {
		return err
	}

	slog.Info("rule added",
		"rule_id", rule.ID,
		"rule_code", rule.Code,
		"program", rule.BenefitProgram,
	)
	return a.changed(ctx, rule)
}

// UpdateRule applies a patch to an existing rule and returns the new state.
func (a *Admin) UpdateRule(ctx context.Context, id string, patch domain.RulePatch) (*domain.Rule, error) {
	current, err := a.store.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	next := patch.Apply(*current)
	if err := rules.Validate(&next); err != nil {
		return nil, err
	}

	updated, err := a.store.UpdateRule(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	slog.Info("rule updated",
		"rule_id", updated.ID,
		"rule_code", updated.Code,
		"program", updated.BenefitProgram,
		"active", updated.Active,
	)
	if err := a.changed(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// changed invalidates the local cache for the rule's program, or every
// program for a global rule, then notifies peers best effort.
func (a *Admin) changed(ctx context.Context, rule *domain.Rule) error {
	if err := a.source.Invalidate(ctx, rule.BenefitProgram); err != nil {
		return fmt.Errorf("invalidate cached rules for %q: %w", rule.BenefitProgram, err)
	}
	if a.compiled != nil {
		a.compiled.Forget(rule.ID)
	}

	if a.publisher == nil {
		return nil
	}
	payload, _ := json.Marshal(domain.RulesChanged{RuleID: rule.ID, Program: rule.BenefitProgram})
	if err := a.publisher.Publish(ctx, domain.TopicRulesChanged, payload); err != nil {
		slog.Warn("failed to announce rule change",
			"rule_id", rule.ID,
			"error", err,
		)
	}
	return nil
}

// SeedInitialRules creates the baseline merchant code rules for every built-in
// program. Rules whose code already exists are left alone. It returns the
// number of rules created.
func (a *Admin) SeedInitialRules(ctx context.Context, cfg policy.Config) (int, error) {
	existing, err := a.store.ListRules(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list rules: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, r := range existing {
		have[r.Code] = true
	}

	created := 0
	for _, r := range InitialRules(cfg) {
		if have[r.Code] {
			continue
		}
		if err := a.AddRule(ctx, &r); err != nil {
			return created, fmt.Errorf("seed rule %s: %w", r.Code, err)
		}
		created++
	}
	return created, nil
}

// InitialRules returns the baseline rule set derived from the policy configuration.
func InitialRules(cfg policy.Config) []domain.Rule {
	out := []domain.Rule{
		{
			Code:            "SNAP_MCC_WHITELIST",
			Name:            "SNAP Authorized Food Retailers",
			Category:        domain.CategoryFederalBenefits,
			Type:            domain.RuleTypeWhitelist,
			BenefitProgram:  policy.ProgramSNAP,
			MCCRestrictions: cfg.SNAP.AllowedMCCs,
			ResponseAction:  domain.ActionBlock,
			Priority:        10,
		},
		{
			Code:            "TANF_MCC_BLACKLIST",
			Name:            "TANF Prohibited Establishments",
			Category:        domain.CategoryFederalBenefits,
			Type:            domain.RuleTypeBlacklist,
			BenefitProgram:  policy.ProgramTANF,
			MCCRestrictions: cfg.TANF.ProhibitedMCCs,
			ResponseAction:  domain.ActionBlock,
			Priority:        5,
		},
		{
			Code:            "WIC_MCC_WHITELIST",
			Name:            "WIC Authorized Vendors",
			Category:        domain.CategoryFederalBenefits,
			Type:            domain.RuleTypeWhitelist,
			BenefitProgram:  policy.ProgramWIC,
			MCCRestrictions: cfg.WIC.VendorMCCs,
			ResponseAction:  domain.ActionBlock,
			Priority:        10,
		},
		{
			Code:           "SECTION_8_LANDLORD",
			Name:           "Section 8 Approved Landlord",
			Category:       domain.CategoryFederalBenefits,
			Type:           domain.RuleTypeConditional,
			BenefitProgram: policy.ProgramSection8,
			ResponseAction: domain.ActionBlock,
			Priority:       10,
		},
		{
			Code:            "ESA_MCC_WHITELIST",
			Name:            "School Choice Educational Merchants",
			Category:        domain.CategoryStateBenefits,
			Type:            domain.RuleTypeWhitelist,
			BenefitProgram:  policy.ProgramESA,
			MCCRestrictions: cfg.ESA.AllowedMCCs,
			ResponseAction:  domain.ActionBlock,
			Priority:        10,
		},
	}

	for _, program := range cfg.Emergency.Programs {
		out = append(out, domain.Rule{
			Code:           program + "_EMERGENCY_SLA",
			Name:           program + " Emergency Disbursement",
			Category:       domain.CategoryCompliance,
			Type:           domain.RuleTypeConditional,
			BenefitProgram: program,
			ResponseAction: domain.ActionWarn,
			Priority:       10,
		})
	}

	for i := range out {
		out[i].Active = true
	}
	return out
}

// Invalidator drops local cache entries and compiled expressions when a peer
// announces a rule change.
type Invalidator struct {
	bus      domain.EventBus
	source   *RuleSource
	compiled *rules.ExpressionEngine
}

// NewInvalidator creates an invalidator. compiled may be nil.
func NewInvalidator(bus domain.EventBus, source *RuleSource, compiled *rules.ExpressionEngine) *Invalidator {
	return &Invalidator{bus: bus, source: source, compiled: compiled}
}

// Run subscribes to rule change announcements until ctx is done.
func (i *Invalidator) Run(ctx context.Context) error {
	sub, err := i.bus.Subscribe(ctx, domain.TopicRulesChanged, i.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", domain.TopicRulesChanged, err)
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (i *Invalidator) handle(ctx context.Context, msg *domain.Message) ([]byte, error) {
	var ev domain.RulesChanged
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		slog.Warn("malformed rule change message",
			"message_id", msg.ID,
			"error", err,
		)
		return nil, err
	}
	if err := i.source.Invalidate(ctx, ev.Program); err != nil {
		slog.Error("failed to invalidate cached rules",
			"program", ev.Program,
			"error", err,
		)
		return nil, err
	}
	if i.compiled != nil && ev.RuleID != "" {
		i.compiled.Forget(ev.RuleID)
	}
	slog.Debug("cached rules invalidated",
		"rule_id", ev.RuleID,
		"program", ev.Program,
	)
	return nil, nil
}
