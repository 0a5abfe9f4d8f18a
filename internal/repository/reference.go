package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
)

// FetchMCCApprovedItems counts the distinct UPC codes that are active WIC items in the state.
func (r *SQLRepository) FetchMCCApprovedItems(ctx context.Context, upcCodes []string, state string) (int, error) {
	if len(upcCodes) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		SELECT COUNT(DISTINCT upc_code)
		FROM wic_approved_items
		WHERE upc_code IN (%s) AND state = ? AND is_active = 1
	`, placeholders(len(upcCodes)))

	args := make([]any, 0, len(upcCodes)+1)
	for _, c := range upcCodes {
		args = append(args, c)
	}
	args = append(args, state)

	var n int
	if err := r.db.QueryRowContext(ctx, r.rebind(query), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// FetchLandlordStatus reports whether the payee is an active, approved landlord.
// Unknown payees are not approved.
func (r *SQLRepository) FetchLandlordStatus(ctx context.Context, payeeID string) (bool, error) {
	if payeeID == "" {
		return false, nil
	}

	query := `SELECT status, is_approved FROM approved_landlords WHERE payee_id = ?`

	var status string
	var approved int
	err := r.db.QueryRowContext(ctx, r.rebind(query), payeeID).Scan(&status, &approved)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status == "active" && approved == 1, nil
}

// SaveWICApprovedItem registers or updates a WIC approved UPC for a state.
func (r *SQLRepository) SaveWICApprovedItem(ctx context.Context, upcCode, state string, active bool) error {
	if upcCode == "" || state == "" {
		return fmt.Errorf("%w: upc code and state are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO wic_approved_items (upc_code, state, is_active) VALUES (?, ?, ?)
		ON CONFLICT(upc_code, state) DO UPDATE SET is_active = excluded.is_active
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query), upcCode, state, boolToInt(active))
	return err
}

// SaveLandlord registers or updates a landlord's approval.
func (r *SQLRepository) SaveLandlord(ctx context.Context, payeeID string, approved bool) error {
	if payeeID == "" {
		return fmt.Errorf("%w: payee id is required", ErrInvalidInput)
	}

	status := "inactive"
	if approved {
		status = "active"
	}

	query := `
		INSERT INTO approved_landlords (payee_id, status, is_approved, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(payee_id) DO UPDATE SET
			status = excluded.status,
			is_approved = excluded.is_approved,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query), payeeID, status, boolToInt(approved), time.Now().UTC())
	return err
}

// ListMCCDescriptors returns all persisted merchant category descriptors.
func (r *SQLRepository) ListMCCDescriptors(ctx context.Context) ([]domain.MCCDescriptor, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, description, category FROM mcc_codes ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MCCDescriptor
	for rows.Next() {
		var d domain.MCCDescriptor
		if err := rows.Scan(&d.Code, &d.Description, &d.Category); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveMCCDescriptor upserts a merchant category descriptor.
func (r *SQLRepository) SaveMCCDescriptor(ctx context.Context, d domain.MCCDescriptor) error {
	if d.Code == "" {
		return fmt.Errorf("%w: mcc code is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO mcc_codes (code, description, category) VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			description = excluded.description,
			category = excluded.category
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query), d.Code, d.Description, d.Category)
	return err
}
