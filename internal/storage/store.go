// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rachajunto/backend/internal/models"
	"github.com/rachajunto/backend/internal/money"
	"github.com/rachajunto/backend/internal/settlement"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken is returned when registering an email that already
	// has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUsernameTaken is returned when the requested username is in use.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInsufficientBalance is returned when a withdrawal exceeds the
	// wallet balance.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
)

// PersistenceError wraps a row that failed boundary validation (e.g. an
// unknown role string). Loosely-typed data never crosses into the domain.
type PersistenceError struct {
	Table string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("malformed %s row: %v", e.Table, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store defines the persistence operations the handlers depend on.
//
// The settlement mutations (JoinPool, MarkParticipantPaid) and the membership
// mutations carry the atomicity contract: each call runs its whole
// read-compute-write cycle as one transaction, so either the full reconciled
// state is persisted or nothing is. Implementations must bound lock waits so
// a stuck writer fails the request instead of wedging the pool.
type Store interface {
	// Users and profiles.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, name, username, avatarURL string) (*models.User, error)

	// Groups and membership. CreateGroup also writes the owner membership
	// row; the role-guarded mutations load actor and target, apply the
	// membership rules and persist the result in one transaction.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error)
	ListPublicGroups(ctx context.Context) ([]models.Group, error)
	ListMembers(ctx context.Context, groupID string) ([]models.GroupMember, error)
	GetMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error)
	JoinGroup(ctx context.Context, groupID, userID string) (*models.GroupMember, error)
	PromoteMember(ctx context.Context, groupID, actorID, targetID string) (*models.GroupMember, error)
	DemoteMember(ctx context.Context, groupID, actorID, targetID string) (*models.GroupMember, error)
	RemoveMember(ctx context.Context, groupID, actorID, targetID string) error

	// Pools and settlement.
	CreatePool(ctx context.Context, pool *models.FinancialPool) error
	GetPool(ctx context.Context, id string) (*models.FinancialPool, error)
	ListPoolsByGroup(ctx context.Context, groupID string) ([]models.FinancialPool, error)
	ListParticipants(ctx context.Context, poolID string) ([]models.PoolParticipant, error)
	JoinPool(ctx context.Context, poolID, userID string) (*settlement.AdmitResult, error)
	MarkParticipantPaid(ctx context.Context, poolID, userID string) (*models.PoolParticipant, error)

	// Wallet.
	WalletBalance(ctx context.Context, userID string) (money.Money, error)
	CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error
	ListWithdrawals(ctx context.Context, userID string) ([]models.Withdrawal, error)

	// Close releases any resources held by the store.
	Close() error
}
