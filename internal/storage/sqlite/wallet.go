package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rachajunto/backend/internal/models"
	"github.com/rachajunto/backend/internal/money"
	"github.com/rachajunto/backend/internal/storage"
)

// walletBalanceQuery sums the paid shares of pools the user created minus
// their withdrawals. The balance is always derived, never stored.
const walletBalanceQuery = `
SELECT
	COALESCE((
		SELECT SUM(pp.share_amount_cents)
		FROM pool_participants pp
		JOIN financial_pools fp ON fp.id = pp.pool_id
		WHERE fp.created_by = ? AND pp.has_paid = 1
	), 0)
	-
	COALESCE((
		SELECT SUM(amount_cents) FROM withdrawals WHERE user_id = ?
	), 0)`

// WalletBalance computes the amount currently available for withdrawal.
func (s *Store) WalletBalance(ctx context.Context, userID string) (money.Money, error) {
	var cents int64
	if err := s.db.QueryRowContext(ctx, walletBalanceQuery, userID, userID).Scan(&cents); err != nil {
		return money.Zero, fmt.Errorf("failed to compute wallet balance: %w", err)
	}
	balance, err := money.FromCents(cents)
	if err != nil {
		// Withdrawals exceeding collected payments should be impossible:
		// CreateWithdrawal checks the balance under the write lock.
		return money.Zero, malformed("withdrawals", err)
	}
	return balance, nil
}

// CreateWithdrawal records a payout request, rejecting amounts above the
// current balance. The balance check and the insert share one transaction.
func (s *Store) CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error {
	if withdrawal.ID == "" {
		withdrawal.ID = uuid.New().String()
	}
	if withdrawal.CreatedAt == 0 {
		withdrawal.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var cents int64
	if err := tx.QueryRowContext(ctx, walletBalanceQuery, withdrawal.UserID, withdrawal.UserID).Scan(&cents); err != nil {
		return fmt.Errorf("failed to compute wallet balance: %w", err)
	}
	if withdrawal.Amount.Cents() > cents {
		return fmt.Errorf("%w: requested %s, available %d cents",
			storage.ErrInsufficientBalance, withdrawal.Amount, cents)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO withdrawals (id, user_id, amount_cents, destination_key, created_at) VALUES (?, ?, ?, ?, ?)",
		withdrawal.ID, withdrawal.UserID, withdrawal.Amount.Cents(), withdrawal.DestinationKey, withdrawal.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert withdrawal: %w", err)
	}

	return tx.Commit()
}

// ListWithdrawals retrieves the user's withdrawal history, newest first.
func (s *Store) ListWithdrawals(ctx context.Context, userID string) ([]models.Withdrawal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, amount_cents, destination_key, created_at FROM withdrawals WHERE user_id = ? ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []models.Withdrawal
	for rows.Next() {
		var (
			w     models.Withdrawal
			cents int64
		)
		if err := rows.Scan(&w.ID, &w.UserID, &cents, &w.DestinationKey, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		if w.Amount, err = money.FromCents(cents); err != nil {
			return nil, malformed("withdrawals", err)
		}
		withdrawals = append(withdrawals, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate withdrawals: %w", err)
	}
	return withdrawals, nil
}
