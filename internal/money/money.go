// Package money provides an exact, cents-backed amount type for pool settlement.
//
// Amounts are stored as integer minor units (centavos) so that split arithmetic
// never drifts the way float64 division does. All constructors reject negative
// values; the settlement rules never produce a negative amount on their own.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInvalidAmount is returned for negative amounts or amounts with more
	// than two fractional digits.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUnderflow is returned when a subtraction would go below zero.
	ErrUnderflow = errors.New("amount underflow")

	// ErrSplitByZero is returned when splitting across zero shares.
	ErrSplitByZero = errors.New("cannot split across zero shares")
)

// Money is a non-negative amount in integer cents.
type Money struct {
	cents int64
}

// Zero is the zero amount.
var Zero = Money{}

// FromCents builds a Money from integer cents.
func FromCents(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, fmt.Errorf("%w: %d cents", ErrInvalidAmount, cents)
	}
	return Money{cents: cents}, nil
}

// Parse builds a Money from a decimal string such as "480", "480.5" or "480.00".
// At most two fractional digits are accepted.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	var cents int64
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		// Digits only. strconv would also accept a sign here, which would
		// let a negative amount through.
		for i := 0; i < len(frac); i++ {
			if frac[i] < '0' || frac[i] > '9' {
				return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
			}
			cents = cents*10 + int64(frac[i]-'0')
		}
		if len(frac) == 1 {
			cents *= 10
		}
	}

	if units > (math.MaxInt64-cents)/100 {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Money{cents: units*100 + cents}, nil
}

// Cents returns the amount in integer cents.
func (m Money) Cents() int64 { return m.cents }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.cents == 0 }

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool { return m.cents > 0 }

// Equal reports whether two amounts are the same.
func (m Money) Equal(o Money) bool { return m.cents == o.cents }

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{cents: m.cents + o.cents}
}

// Sub returns m minus o. Going below zero is an error, never a clamp:
// a settlement computation that underflows is a bug in the caller.
func (m Money) Sub(o Money) (Money, error) {
	if o.cents > m.cents {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrUnderflow, m, o)
	}
	return Money{cents: m.cents - o.cents}, nil
}

// Split divides the amount into n parts that sum exactly to the original.
// The remainder (cents mod n) is distributed one cent at a time starting at
// index 0, so shares are deterministic for a given order and differ by at
// most one cent.
func (m Money) Split(n int) ([]Money, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n=%d", ErrSplitByZero, n)
	}

	base := m.cents / int64(n)
	remainder := m.cents % int64(n)

	shares := make([]Money, n)
	for i := range shares {
		cents := base
		if int64(i) < remainder {
			cents++
		}
		shares[i] = Money{cents: cents}
	}
	return shares, nil
}

// String renders the amount as a plain decimal, e.g. "480.00".
func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", m.cents/100, m.cents%100)
}

// MarshalJSON encodes the amount as a quoted decimal string so clients never
// see binary floating point.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts either a quoted decimal string or a bare number with
// at most two fractional digits.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
