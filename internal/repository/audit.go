package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
)

const auditColumns = `id, transaction_id, program, merchant_category_code, amount, approved,
	reasons, risk_score, applied_rules, required_actions, evaluated_at, duration_ms`

// AppendAudit writes one decision record. Records are never updated.
func (r *SQLRepository) AppendAudit(ctx context.Context, rec *domain.AuditRecord) error {
	if rec.ID == "" || rec.TransactionID == "" {
		return fmt.Errorf("%w: audit id and transaction id are required", ErrInvalidInput)
	}

	reasons, err := json.Marshal(nonNil(rec.Reasons))
	if err != nil {
		return err
	}
	applied, err := json.Marshal(rec.AppliedRules)
	if err != nil {
		return err
	}
	actions, err := json.Marshal(nonNil(rec.RequiredActions))
	if err != nil {
		return err
	}

	query := `
		INSERT INTO rule_evaluation_logs (` + auditColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, rec.TransactionID, rec.Program, rec.MCC, rec.Amount, boolToInt(rec.Approved),
		string(reasons), rec.RiskScore, string(applied), string(actions),
		rec.EvaluatedAt.UTC(), rec.DurationMs,
	)
	return err
}

// GetAudit retrieves an audit record by ID.
func (r *SQLRepository) GetAudit(ctx context.Context, id string) (*domain.AuditRecord, error) {
	query := `SELECT ` + auditColumns + ` FROM rule_evaluation_logs WHERE id = ?`

	rec, err := scanAudit(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListAuditByTransaction returns every decision recorded for a transaction, oldest first.
func (r *SQLRepository) ListAuditByTransaction(ctx context.Context, txID string) ([]*domain.AuditRecord, error) {
	query := `SELECT ` + auditColumns + ` FROM rule_evaluation_logs WHERE transaction_id = ? ORDER BY evaluated_at ASC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditRecord
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListAudit returns a program's decisions evaluated between from and to,
// inclusive, newest first.
func (r *SQLRepository) ListAudit(ctx context.Context, program string, from, to time.Time) ([]*domain.AuditRecord, error) {
	if program == "" {
		return nil, fmt.Errorf("%w: program is required", ErrInvalidInput)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: audit range ends before it starts", ErrInvalidInput)
	}

	query := `
		SELECT ` + auditColumns + `
		FROM rule_evaluation_logs
		WHERE program = ? AND evaluated_at >= ? AND evaluated_at <= ?
		ORDER BY evaluated_at DESC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), program, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditRecord
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanAudit(row rowScanner) (*domain.AuditRecord, error) {
	var rec domain.AuditRecord
	var approved int
	var reasons, applied, actions string

	if err := row.Scan(
		&rec.ID, &rec.TransactionID, &rec.Program, &rec.MCC, &rec.Amount, &approved,
		&reasons, &rec.RiskScore, &applied, &actions, &rec.EvaluatedAt, &rec.DurationMs,
	); err != nil {
		return nil, err
	}
	rec.Approved = approved == 1

	if err := json.Unmarshal([]byte(reasons), &rec.Reasons); err != nil {
		return nil, fmt.Errorf("decode reasons: %w", err)
	}
	if err := json.Unmarshal([]byte(applied), &rec.AppliedRules); err != nil {
		return nil, fmt.Errorf("decode applied rules: %w", err)
	}
	if err := json.Unmarshal([]byte(actions), &rec.RequiredActions); err != nil {
		return nil, fmt.Errorf("decode required actions: %w", err)
	}
	return &rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
