package policy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
)

// TANF blocks prohibited venues and items and caps cash withdrawals.
type TANF struct {
	cfg        TANFConfig
	history    domain.TransactionHistory
	classifier Classifier
	keywords   keywordMatcher
}

// NewTANF creates the TANF policy.
func NewTANF(cfg TANFConfig, history domain.TransactionHistory, classifier Classifier) *TANF {
	return &TANF{
		cfg:        cfg,
		history:    history,
		classifier: classifier,
		keywords:   newKeywordMatcher(cfg.ProhibitedItems),
	}
}

func (p *TANF) Program() string { return ProgramTANF }

func (p *TANF) Check(ctx context.Context, tx *domain.TransactionContext) (domain.CheckResult, error) {
	mcc := tx.MerchantCategoryCode

	if contains(p.cfg.ProhibitedMCCs, mcc) {
		return domain.Deny("TANF cannot be used at this type of establishment", p.cfg.VenueRisk), nil
	}

	if p.classifier != nil {
		if cat := p.classifier.Category(mcc); contains(p.cfg.ProhibitedCategories, cat) {
			return domain.Deny("TANF cannot be used for "+strings.ToLower(cat), p.cfg.VenueRisk), nil
		}
	}

	if item, ok := p.keywords.match(tx.Items); ok {
		return domain.Deny(fmt.Sprintf("%s is not eligible under TANF", item.Description), p.cfg.ItemRisk), nil
	}

	if contains(p.cfg.CashMCCs, mcc) {
		return p.checkCash(ctx, tx)
	}

	return domain.Allow(), nil
}

func (p *TANF) checkCash(ctx context.Context, tx *domain.TransactionContext) (domain.CheckResult, error) {
	at := tx.Timestamp

	if tx.MerchantCategoryCode == p.cfg.ATMMCC && len(p.cfg.ATMBlockedHours) == 2 {
		h := at.Hour()
		if h >= p.cfg.ATMBlockedHours[0] && h < p.cfg.ATMBlockedHours[1] {
			return domain.Deny(fmt.Sprintf("TANF ATM withdrawals not allowed between %s and %s",
				clockHour(p.cfg.ATMBlockedHours[0]), clockHour(p.cfg.ATMBlockedHours[1])), p.cfg.CashRisk), nil
		}
	}

	if p.cfg.MaxCashPerDay > 0 {
		if tx.Amount > p.cfg.MaxCashPerDay {
			return p.dailyExceeded(), nil
		}
		today, err := p.withdrawn(ctx, tx, startOfDay(at))
		if err != nil {
			return domain.CheckResult{}, err
		}
		if today+tx.Amount > p.cfg.MaxCashPerDay {
			return p.dailyExceeded(), nil
		}
	}

	if p.cfg.MaxCashPerMonth > 0 {
		month, err := p.withdrawn(ctx, tx, startOfMonth(at))
		if err != nil {
			return domain.CheckResult{}, err
		}
		if month+tx.Amount > p.cfg.MaxCashPerMonth {
			return domain.Deny("Exceeds monthly cash limit: $"+dollars(p.cfg.MaxCashPerMonth), p.cfg.CashRisk), nil
		}
	}

	return domain.Allow(), nil
}

func (p *TANF) dailyExceeded() domain.CheckResult {
	return domain.Deny("Exceeds daily cash limit: $"+dollars(p.cfg.MaxCashPerDay), p.cfg.CashRisk)
}

func (p *TANF) withdrawn(ctx context.Context, tx *domain.TransactionContext, since time.Time) (float64, error) {
	if p.history == nil || tx.WalletID == "" {
		return 0, nil
	}
	total, err := p.history.CashWithdrawnSince(ctx, tx.WalletID, p.cfg.CashMCCs, since, tx.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to read cash withdrawals: %w", err)
	}
	return total, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// clockHour renders 2 as "2 AM" and 14 as "2 PM".
func clockHour(h int) string {
	switch {
	case h == 0 || h == 24:
		return "12 AM"
	case h < 12:
		return fmt.Sprintf("%d AM", h)
	case h == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", h-12)
	}
}

// dollars renders 500 as "500" and 12.5 as "12.50".
func dollars(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
