package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rachajunto/backend/internal/models"
	"github.com/rachajunto/backend/internal/money"
	"github.com/rachajunto/backend/internal/settlement"
	"github.com/rachajunto/backend/internal/storage"
)

// CreatePool persists a new pool. Structural validation must have passed
// before this is called; the pool starts open with no participants.
func (s *Store) CreatePool(ctx context.Context, pool *models.FinancialPool) error {
	if pool.ID == "" {
		pool.ID = uuid.New().String()
	}
	if pool.CreatedAt == 0 {
		pool.CreatedAt = time.Now().Unix()
	}
	if pool.Status == "" {
		pool.Status = models.PoolStatusOpen
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO financial_pools
			(id, group_id, created_by, title, description, pool_type, category,
			 total_amount_cents, frequency, next_due_date, auto_renew, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pool.ID, pool.GroupID, pool.CreatedBy, pool.Title, pool.Description,
		string(pool.PoolType), pool.Category, pool.TotalAmount.Cents(),
		string(pool.Frequency), pool.NextDueDate, boolToInt(pool.AutoRenew),
		string(pool.Status), pool.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pool: %w", err)
	}
	return nil
}

// GetPool retrieves a pool by ID.
func (s *Store) GetPool(ctx context.Context, id string) (*models.FinancialPool, error) {
	return getPool(ctx, s.db, id)
}

// ListPoolsByGroup retrieves the open and active pools of a group, newest
// first.
func (s *Store) ListPoolsByGroup(ctx context.Context, groupID string) ([]models.FinancialPool, error) {
	rows, err := s.db.QueryContext(ctx, poolColumns+
		" FROM financial_pools WHERE group_id = ? AND status IN (?, ?) ORDER BY created_at DESC",
		groupID, string(models.PoolStatusOpen), string(models.PoolStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	defer rows.Close()

	var pools []models.FinancialPool
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools = append(pools, *pool)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pools: %w", err)
	}
	return pools, nil
}

// ListParticipants retrieves a pool's participants in join order, the order
// that drives remainder distribution.
func (s *Store) ListParticipants(ctx context.Context, poolID string) ([]models.PoolParticipant, error) {
	return listParticipants(ctx, s.db, poolID)
}

// JoinPool admits userID into the pool and rebalances every share, all inside
// one immediate transaction. Either the full recomputed participant set is
// committed or nothing changes.
func (s *Store) JoinPool(ctx context.Context, poolID, userID string) (*settlement.AdmitResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pool, err := getPool(ctx, tx, poolID)
	if err != nil {
		return nil, err
	}
	participants, err := listParticipants(ctx, tx, poolID)
	if err != nil {
		return nil, err
	}

	result, err := settlement.AdmitParticipant(pool, participants, userID, time.Now())
	if err != nil {
		return nil, err
	}
	if err := settlement.VerifyShares(pool, result.Participants); err != nil {
		return nil, err
	}

	for i := range result.Participants {
		p := &result.Participants[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
			_, err = tx.ExecContext(ctx, `
				INSERT INTO pool_participants (id, pool_id, user_id, share_amount_cents, join_order, has_paid, paid_at, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				p.ID, p.PoolID, p.UserID, p.ShareAmount.Cents(), p.JoinOrder, boolToInt(p.HasPaid), p.PaidAt, p.CreatedAt,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to insert participant: %w", err)
			}
			result.Added = *p
			continue
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE pool_participants SET share_amount_cents = ? WHERE id = ?",
			p.ShareAmount.Cents(), p.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update share: %w", err)
		}
	}

	if err := updatePoolStatus(ctx, tx, pool, result.Participants); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// MarkParticipantPaid marks userID's share paid and advances the pool status,
// inside one transaction.
func (s *Store) MarkParticipantPaid(ctx context.Context, poolID, userID string) (*models.PoolParticipant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pool, err := getPool(ctx, tx, poolID)
	if err != nil {
		return nil, err
	}
	participants, err := listParticipants(ctx, tx, poolID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, p := range participants {
		if p.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("participant: %w", storage.ErrNotFound)
	}

	paid, err := settlement.MarkPaid(pool, participants[idx], time.Now())
	if err != nil {
		return nil, err
	}
	participants[idx] = paid

	_, err = tx.ExecContext(ctx,
		"UPDATE pool_participants SET has_paid = 1, paid_at = ? WHERE id = ?",
		paid.PaidAt, paid.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark paid: %w", err)
	}

	if err := updatePoolStatus(ctx, tx, pool, participants); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &paid, nil
}

func updatePoolStatus(ctx context.Context, tx *sql.Tx, pool *models.FinancialPool, participants []models.PoolParticipant) error {
	next := settlement.NextStatus(pool, participants)
	if next == pool.Status {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE financial_pools SET status = ? WHERE id = ?", string(next), pool.ID,
	); err != nil {
		return fmt.Errorf("failed to update pool status: %w", err)
	}
	pool.Status = next
	return nil
}

const poolColumns = `SELECT id, group_id, created_by, title, description, pool_type, category,
	total_amount_cents, frequency, next_due_date, auto_renew, status, created_at`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func getPool(ctx context.Context, q queryRower, id string) (*models.FinancialPool, error) {
	row := q.QueryRowContext(ctx, poolColumns+" FROM financial_pools WHERE id = ?", id)
	pool, err := scanPool(row)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func scanPool(row rowScanner) (*models.FinancialPool, error) {
	var (
		pool       models.FinancialPool
		poolType   string
		frequency  string
		status     string
		autoRenew  int
		totalCents int64
	)
	err := row.Scan(&pool.ID, &pool.GroupID, &pool.CreatedBy, &pool.Title, &pool.Description,
		&poolType, &pool.Category, &totalCents, &frequency, &pool.NextDueDate,
		&autoRenew, &status, &pool.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("pool: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}

	if pool.PoolType, err = models.ParsePoolType(poolType); err != nil {
		return nil, malformed("financial_pools", err)
	}
	if pool.Status, err = models.ParsePoolStatus(status); err != nil {
		return nil, malformed("financial_pools", err)
	}
	if frequency != "" {
		if pool.Frequency, err = models.ParseFrequency(frequency); err != nil {
			return nil, malformed("financial_pools", err)
		}
	}
	if pool.TotalAmount, err = money.FromCents(totalCents); err != nil {
		return nil, malformed("financial_pools", err)
	}
	pool.AutoRenew = autoRenew != 0
	return &pool, nil
}

func listParticipants(ctx context.Context, q queryRower, poolID string) ([]models.PoolParticipant, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, pool_id, user_id, share_amount_cents, join_order, has_paid, paid_at, created_at
		FROM pool_participants WHERE pool_id = ? ORDER BY join_order, id`, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []models.PoolParticipant
	for rows.Next() {
		var (
			p          models.PoolParticipant
			shareCents int64
			hasPaid    int
		)
		if err := rows.Scan(&p.ID, &p.PoolID, &p.UserID, &shareCents, &p.JoinOrder, &hasPaid, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if p.ShareAmount, err = money.FromCents(shareCents); err != nil {
			return nil, malformed("pool_participants", err)
		}
		p.HasPaid = hasPaid != 0
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}
