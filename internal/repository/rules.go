package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/warden/internal/domain"
)

const ruleColumns = `id, rule_code, rule_name, rule_category, rule_type, benefit_program,
	mcc_restrictions, conditions, response_action, priority, is_active, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// FetchRules returns active rules for the program plus global rules, ordered by
// priority then creation time. Every rule is returned regardless of its MCC list;
// applicability to the merchant code is decided by the MCC checker.
// Rows whose stored definition cannot be decoded are skipped and logged.
func (r *SQLRepository) FetchRules(ctx context.Context, program, mcc string) ([]domain.Rule, error) {
	if program == "" {
		return nil, fmt.Errorf("%w: program is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + ruleColumns + `
		FROM business_rules
		WHERE is_active = 1
		  AND (benefit_program = ? OR benefit_program IS NULL)
		ORDER BY priority ASC, created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), program)
	if err != nil {
		return nil, unavailable("fetch rules", err)
	}
	defer rows.Close()

	rules := make([]domain.Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if errors.Is(err, domain.ErrInvalidRuleDefinition) {
			slog.Warn("skipping undecodable rule",
				"program", program,
				"mcc", mcc,
				"error", err,
			)
			continue
		}
		if err != nil {
			return nil, unavailable("scan rule", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate rules", err)
	}

	return rules, nil
}

// GetRule retrieves a rule by ID, active or not.
func (r *SQLRepository) GetRule(ctx context.Context, id string) (*domain.Rule, error) {
	return r.getRule(ctx, r.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLRepository) getRule(ctx context.Context, q queryRower, id string) (*domain.Rule, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	query := `SELECT ` + ruleColumns + ` FROM business_rules WHERE id = ?`

	rule, err := scanRule(q.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListRules returns every rule for a program, including inactive ones.
// An empty program lists all rules.
func (r *SQLRepository) ListRules(ctx context.Context, program string) ([]domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM business_rules`
	var args []any
	if program != "" {
		query += ` WHERE benefit_program = ?`
		args = append(args, program)
	}
	query += ` ORDER BY priority ASC, created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// InsertRule persists a new rule. ID and timestamps are filled in when empty.
func (r *SQLRepository) InsertRule(ctx context.Context, rule *domain.Rule) error {
	if rule.Code == "" || rule.Name == "" {
		return fmt.Errorf("%w: rule code and name are required", ErrInvalidInput)
	}
	if !rule.Type.Valid() {
		return fmt.Errorf("%w: unknown rule type %q", ErrInvalidInput, rule.Type)
	}
	if !rule.ResponseAction.Valid() {
		return fmt.Errorf("%w: unknown response action %q", ErrInvalidInput, rule.ResponseAction)
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	if rule.Category == "" {
		rule.Category = domain.CategoryGlobal
	}

	mccs, conditions, err := encodeRuleJSON(rule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO business_rules (
			id, rule_code, rule_name, rule_category, rule_type, benefit_program,
			mcc_restrictions, conditions, response_action, priority, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Code, rule.Name, string(rule.Category), string(rule.Type),
		nullString(rule.BenefitProgram), mccs, conditions,
		string(rule.ResponseAction), rule.Priority, boolToInt(rule.Active),
		rule.CreatedAt.UTC(), rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rule %s: %w", rule.Code, err)
	}
	return nil
}

// UpdateRule applies a soft update inside a transaction and returns the new state.
func (r *SQLRepository) UpdateRule(ctx context.Context, id string, patch domain.RulePatch) (*domain.Rule, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	current, err := r.getRule(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	updated := patch.Apply(*current)
	updated.UpdatedAt = time.Now().UTC()

	mccs, conditions, err := encodeRuleJSON(&updated)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE business_rules
		SET mcc_restrictions = ?, conditions = ?, is_active = ?, priority = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := tx.ExecContext(ctx, r.rebind(query),
		mccs, conditions, boolToInt(updated.Active), updated.Priority, updated.UpdatedAt, id,
	); err != nil {
		return nil, fmt.Errorf("update rule %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

func scanRule(row rowScanner) (*domain.Rule, error) {
	var rule domain.Rule
	var program sql.NullString
	var category, ruleType, action, mccs, conditions string
	var active int

	if err := row.Scan(
		&rule.ID, &rule.Code, &rule.Name, &category, &ruleType, &program,
		&mccs, &conditions, &action, &rule.Priority, &active,
		&rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}

	rule.Category = domain.RuleCategory(category)
	rule.Type = domain.RuleType(ruleType)
	rule.ResponseAction = domain.ResponseAction(action)
	rule.BenefitProgram = program.String
	rule.Active = active == 1

	if mccs != "" {
		if err := json.Unmarshal([]byte(mccs), &rule.MCCRestrictions); err != nil {
			return nil, fmt.Errorf("%w: rule %s: mcc_restrictions: %v", domain.ErrInvalidRuleDefinition, rule.ID, err)
		}
	}
	if conditions != "" {
		if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
			return nil, fmt.Errorf("%w: rule %s: conditions: %v", domain.ErrInvalidRuleDefinition, rule.ID, err)
		}
	}
	return &rule, nil
}

func encodeRuleJSON(rule *domain.Rule) (string, string, error) {
	mccs := rule.MCCRestrictions
	if mccs == nil {
		mccs = []string{}
	}
	mccJSON, err := json.Marshal(mccs)
	if err != nil {
		return "", "", fmt.Errorf("encode mcc restrictions: %w", err)
	}
	condJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return "", "", fmt.Errorf("encode conditions: %w", err)
	}
	return string(mccJSON), string(condJSON), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
