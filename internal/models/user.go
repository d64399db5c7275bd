package models

import "github.com/rachajunto/backend/internal/money"

// User represents a registered account and its public profile.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique). Used for login.
	Email string

	// PasswordHash is the bcrypt hash of the user's password.
	// Never serialized to clients.
	PasswordHash string

	// Name is the display name shown in groups and pools.
	Name string

	// Username is the unique public handle (e.g. "@maria").
	Username string

	// AvatarURL points at an externally hosted profile image. Optional.
	AvatarURL string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// Withdrawal represents a payout request against the user's wallet balance.
// The balance itself is derived from paid shares of pools the user created;
// it is never stored as a column.
type Withdrawal struct {
	// ID is the unique identifier for the withdrawal (UUID format).
	ID string

	// UserID is the account the payout belongs to.
	UserID string

	// Amount is the requested payout amount.
	Amount money.Money

	// DestinationKey is the payment key (PIX key in the Brazilian flow)
	// the payout should be sent to.
	DestinationKey string

	// CreatedAt is the Unix timestamp when the withdrawal was requested.
	CreatedAt int64
}
