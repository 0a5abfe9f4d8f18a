package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/warden/internal/domain"
)

// RecordTransaction stores a transaction in history.
func (r *SQLRepository) RecordTransaction(ctx context.Context, tx *domain.CompletedTransaction) error {
	if tx.ID == "" || tx.WalletID == "" {
		return fmt.Errorf("%w: transaction id and wallet id are required", ErrInvalidInput)
	}
	if tx.Status == "" {
		tx.Status = domain.TxStatusCompleted
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO transactions (id, wallet_id, program, mcc, amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tx.ID, tx.WalletID, tx.Program, tx.MCC, tx.Amount, tx.Status, tx.CreatedAt.UTC(),
	)
	return err
}

// CompletedTotals returns the count and sum of the wallet's completed
// transactions created between since and until, inclusive.
func (r *SQLRepository) CompletedTotals(ctx context.Context, walletID string, since, until time.Time) (int64, float64, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE wallet_id = ? AND status = ? AND created_at >= ? AND created_at <= ?
	`

	var count int64
	var total float64
	err := r.db.QueryRowContext(ctx, r.rebind(query), walletID, domain.TxStatusCompleted, since.UTC(), until.UTC()).
		Scan(&count, &total)
	if err != nil {
		return 0, 0, err
	}
	return count, total, nil
}

// CashWithdrawnSince sums the wallet's completed transactions at the given MCCs
// created between since and until, inclusive.
func (r *SQLRepository) CashWithdrawnSince(ctx context.Context, walletID string, mccs []string, since, until time.Time) (float64, error) {
	if len(mccs) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE wallet_id = ? AND status = ? AND created_at >= ? AND created_at <= ? AND mcc IN (%s)
	`, placeholders(len(mccs)))

	args := []any{walletID, domain.TxStatusCompleted, since.UTC(), until.UTC()}
	for _, m := range mccs {
		args = append(args, m)
	}

	var total float64
	if err := r.db.QueryRowContext(ctx, r.rebind(query), args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
