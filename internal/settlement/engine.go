// Package settlement implements the equal-split rules for financial pools.
//
// All functions are pure: they take the pool and its participant set, return
// the updated rows, and leave persistence and locking to the storage layer.
// Callers must run read-compute-write cycles for one pool under a single
// transaction so concurrent admits cannot interleave.
package settlement

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rachajunto/backend/internal/models"
	"github.com/rachajunto/backend/internal/money"
)

var (
	// ErrNoParticipants is returned when shares are computed for an empty set.
	ErrNoParticipants = errors.New("pool has no participants")

	// ErrDuplicateParticipant is returned when a user already participates
	// in the pool.
	ErrDuplicateParticipant = errors.New("user already participates in this pool")

	// ErrPoolClosed is returned for mutations against a completed pool.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrAlreadyPaid is returned when marking a participant paid twice.
	ErrAlreadyPaid = errors.New("participant has already paid")

	// ErrInvariantViolation indicates the participant set no longer
	// reconciles with the pool total. This is a bug, not a user error:
	// callers must abort, never coerce.
	ErrInvariantViolation = errors.New("settlement invariant violation")
)

// ComputeEqualShares splits total into n shares that sum to total exactly.
// Remainder cents go to the earliest positions, so for a participant set
// sorted by join order the result is idempotent across recomputations.
func ComputeEqualShares(total money.Money, n int) ([]money.Money, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: cannot split among %d", ErrNoParticipants, n)
	}
	return total.Split(n)
}

// Reconciliation records a participant who already paid but whose owed share
// changed when the set was recomputed. The pool creator has to settle the
// difference with them out of band.
type Reconciliation struct {
	ParticipantID string
	UserID        string
	PaidShare     money.Money
	NewShare      money.Money
}

// AdmitResult is the outcome of admitting a new participant.
type AdmitResult struct {
	// Participants is the full participant set, in join order, with every
	// share recomputed.
	Participants []models.PoolParticipant

	// Added is the newly admitted participant.
	Added models.PoolParticipant

	// Reconciliations lists paid participants whose share changed. Empty
	// when nobody had paid yet.
	Reconciliations []Reconciliation
}

// AdmitParticipant adds userID to the pool and redistributes shares equally
// across the whole new set.
//
// Shares are recomputed for everyone, including participants who already
// paid; those show up in Reconciliations so the caller can surface the
// mismatch instead of silently changing a settled obligation.
func AdmitParticipant(pool *models.FinancialPool, participants []models.PoolParticipant, userID string, now time.Time) (*AdmitResult, error) {
	if pool.Status == models.PoolStatusCompleted {
		return nil, fmt.Errorf("%w: pool %s is %s", ErrPoolClosed, pool.ID, pool.Status)
	}
	for _, p := range participants {
		if p.UserID == userID {
			return nil, fmt.Errorf("%w: user %s in pool %s", ErrDuplicateParticipant, userID, pool.ID)
		}
	}

	updated := make([]models.PoolParticipant, len(participants), len(participants)+1)
	copy(updated, participants)
	sortByJoinOrder(updated)

	nextOrder := 0
	if n := len(updated); n > 0 {
		nextOrder = updated[n-1].JoinOrder + 1
	}
	updated = append(updated, models.PoolParticipant{
		PoolID:    pool.ID,
		UserID:    userID,
		JoinOrder: nextOrder,
		HasPaid:   false,
		CreatedAt: now.Unix(),
	})

	shares, err := ComputeEqualShares(pool.TotalAmount, len(updated))
	if err != nil {
		return nil, err
	}

	var reconciliations []Reconciliation
	for i := range updated {
		if updated[i].HasPaid && !updated[i].ShareAmount.Equal(shares[i]) {
			reconciliations = append(reconciliations, Reconciliation{
				ParticipantID: updated[i].ID,
				UserID:        updated[i].UserID,
				PaidShare:     updated[i].ShareAmount,
				NewShare:      shares[i],
			})
		}
		updated[i].ShareAmount = shares[i]
	}

	return &AdmitResult{
		Participants:    updated,
		Added:           updated[len(updated)-1],
		Reconciliations: reconciliations,
	}, nil
}

// MarkPaid marks the participant's share as paid.
// Not idempotent: a second call fails with ErrAlreadyPaid and the caller must
// re-fetch state before retrying.
func MarkPaid(pool *models.FinancialPool, participant models.PoolParticipant, now time.Time) (models.PoolParticipant, error) {
	if pool.Status == models.PoolStatusCompleted {
		return participant, fmt.Errorf("%w: pool %s is %s", ErrPoolClosed, pool.ID, pool.Status)
	}
	if participant.HasPaid {
		return participant, fmt.Errorf("%w: participant %s", ErrAlreadyPaid, participant.ID)
	}
	participant.HasPaid = true
	participant.PaidAt = now.Unix()
	return participant, nil
}

// Progress is the aggregate payment state of a pool.
type Progress struct {
	PaidCount       int
	TotalCount      int
	PaidAmount      money.Money
	RemainingAmount money.Money
}

// PoolProgress aggregates payment progress. Remaining is the pool total minus
// the sum of shares already paid, i.e. what the currently unpaid participants
// still owe at their current share.
func PoolProgress(pool *models.FinancialPool, participants []models.PoolParticipant) (Progress, error) {
	progress := Progress{TotalCount: len(participants)}
	for _, p := range participants {
		if p.HasPaid {
			progress.PaidCount++
			progress.PaidAmount = progress.PaidAmount.Add(p.ShareAmount)
		}
	}

	remaining, err := pool.TotalAmount.Sub(progress.PaidAmount)
	if err != nil {
		// Paid shares exceeding the total means the set was mutated
		// outside the engine.
		return Progress{}, fmt.Errorf("%w: paid %s exceeds total %s",
			ErrInvariantViolation, progress.PaidAmount, pool.TotalAmount)
	}
	progress.RemainingAmount = remaining
	return progress, nil
}

// VerifyShares checks that the participant shares reconcile with the pool
// total. Storage calls this before committing a settlement transaction.
func VerifyShares(pool *models.FinancialPool, participants []models.PoolParticipant) error {
	if len(participants) == 0 {
		return nil
	}
	var sum money.Money
	for _, p := range participants {
		sum = sum.Add(p.ShareAmount)
	}
	if !sum.Equal(pool.TotalAmount) {
		return fmt.Errorf("%w: shares sum to %s, pool total is %s",
			ErrInvariantViolation, sum, pool.TotalAmount)
	}
	return nil
}

// NextStatus derives the pool lifecycle state from its participant set:
// open until the first payment, active while partially paid, completed once
// every participant of a non-empty set has paid.
func NextStatus(pool *models.FinancialPool, participants []models.PoolParticipant) models.PoolStatus {
	if len(participants) == 0 {
		return models.PoolStatusOpen
	}
	paid := 0
	for _, p := range participants {
		if p.HasPaid {
			paid++
		}
	}
	switch {
	case paid == 0:
		return models.PoolStatusOpen
	case paid == len(participants):
		return models.PoolStatusCompleted
	default:
		return models.PoolStatusActive
	}
}

// sortByJoinOrder orders participants by their join sequence, participant ID
// as the tie-breaker. This ordering is what makes remainder distribution
// stable across recomputations.
func sortByJoinOrder(participants []models.PoolParticipant) {
	sort.SliceStable(participants, func(i, j int) bool {
		if participants[i].JoinOrder != participants[j].JoinOrder {
			return participants[i].JoinOrder < participants[j].JoinOrder
		}
		return participants[i].ID < participants[j].ID
	})
}
