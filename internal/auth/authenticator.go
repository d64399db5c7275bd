package auth

import (
	"context"

	"github.com/rachajunto/backend/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping auth methods (password, OAuth, etc.)
// without changing the handlers.
type Authenticator interface {
	// Register creates a new account with the given profile and credential.
	Register(ctx context.Context, email, name, username, credential string) (*models.User, error)

	// Authenticate verifies the credentials and returns the account.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)
}
