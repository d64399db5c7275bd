package models

import (
	"fmt"
	"time"

	"github.com/rachajunto/backend/internal/money"
)

// PoolType distinguishes one-off expenses from repeating ones.
type PoolType string

const (
	PoolTypeOneTime      PoolType = "one-time"
	PoolTypeSubscription PoolType = "subscription"
	PoolTypeRecurring    PoolType = "recurring"
)

// ParsePoolType converts a storage string into a PoolType.
func ParsePoolType(s string) (PoolType, error) {
	switch PoolType(s) {
	case PoolTypeOneTime, PoolTypeSubscription, PoolTypeRecurring:
		return PoolType(s), nil
	}
	return "", fmt.Errorf("unknown pool type %q", s)
}

// Frequency is the billing cadence of a subscription or recurring pool.
type Frequency string

const (
	FrequencyWeekly       Frequency = "weekly"
	FrequencyBiweekly     Frequency = "biweekly"
	FrequencyMonthly      Frequency = "monthly"
	FrequencyQuarterly    Frequency = "quarterly"
	FrequencySemiannually Frequency = "semiannually"
	FrequencyYearly       Frequency = "yearly"
)

// ParseFrequency converts a storage string into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly,
		FrequencyQuarterly, FrequencySemiannually, FrequencyYearly:
		return Frequency(s), nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// PoolStatus is the lifecycle state of a pool.
// open: created, nobody has paid yet.
// active: at least one participant has paid.
// completed: every participant has paid.
type PoolStatus string

const (
	PoolStatusOpen      PoolStatus = "open"
	PoolStatusActive    PoolStatus = "active"
	PoolStatusCompleted PoolStatus = "completed"
)

// ParsePoolStatus converts a storage string into a PoolStatus.
func ParsePoolStatus(s string) (PoolStatus, error) {
	switch PoolStatus(s) {
	case PoolStatusOpen, PoolStatusActive, PoolStatusCompleted:
		return PoolStatus(s), nil
	}
	return "", fmt.Errorf("unknown pool status %q", s)
}

// dueDateLayout is the storage format for NextDueDate.
const dueDateLayout = "2006-01-02"

// FinancialPool represents a shared expense ("rateio") split among its
// participants.
type FinancialPool struct {
	// ID is the unique identifier for the pool (UUID format).
	ID string

	// GroupID is the group this pool belongs to.
	GroupID string

	// CreatedBy is the user who opened the pool. Must hold an owner or
	// admin role in the group at creation time.
	CreatedBy string

	// Title is the human-readable name of the expense.
	Title string

	// Description is optional free text.
	Description string

	// PoolType is one-time, subscription or recurring.
	PoolType PoolType

	// Category is an optional discovery tag (e.g. "Viagens", "Games").
	Category string

	// TotalAmount is the full amount to be split. Always positive.
	TotalAmount money.Money

	// Frequency is set iff PoolType is not one-time.
	Frequency Frequency

	// NextDueDate ("2006-01-02") is set iff PoolType is not one-time.
	NextDueDate string

	// AutoRenew is meaningful only for subscription pools.
	AutoRenew bool

	// Status is the current lifecycle state.
	Status PoolStatus

	// CreatedAt is the Unix timestamp when the pool was created.
	CreatedAt int64
}

// Validate checks the structural invariants of a pool before it is persisted.
func (p *FinancialPool) Validate() error {
	if !p.TotalAmount.IsPositive() {
		return fmt.Errorf("pool total must be positive, got %s", p.TotalAmount)
	}
	if _, err := ParsePoolType(string(p.PoolType)); err != nil {
		return err
	}
	if p.PoolType == PoolTypeOneTime {
		if p.Frequency != "" || p.NextDueDate != "" {
			return fmt.Errorf("one-time pool must not set frequency or next due date")
		}
		return nil
	}
	if _, err := ParseFrequency(string(p.Frequency)); err != nil {
		return fmt.Errorf("%s pool requires a frequency: %w", p.PoolType, err)
	}
	if _, err := time.Parse(dueDateLayout, p.NextDueDate); err != nil {
		return fmt.Errorf("%s pool requires a next due date in YYYY-MM-DD format", p.PoolType)
	}
	return nil
}

// PoolParticipant represents one user's share of a pool.
type PoolParticipant struct {
	// ID is the unique identifier for the participant row (UUID format).
	ID string

	// PoolID is the pool this participation belongs to.
	PoolID string

	// UserID is the participant's account.
	UserID string

	// ShareAmount is the participant's current owed share. Recomputed for
	// the whole participant set whenever someone joins.
	ShareAmount money.Money

	// JoinOrder is the participant's position in the join sequence,
	// starting at 0. It is the stable order that drives remainder
	// distribution: re-running the split for the same set always gives
	// the extra cents to the earliest joiners.
	JoinOrder int

	// HasPaid is true once the participant has marked their share paid.
	HasPaid bool

	// PaidAt is the Unix timestamp of payment. Zero iff HasPaid is false.
	PaidAt int64

	// CreatedAt is the Unix timestamp when the participant joined the pool.
	CreatedAt int64
}
