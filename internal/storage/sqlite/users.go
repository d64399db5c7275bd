package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rachajunto/backend/internal/models"
	"github.com/rachajunto/backend/internal/storage"
)

// CreateUser persists a new account, enforcing email and username uniqueness.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email = ?", user.Email,
	).Scan(&n); err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if n > 0 {
		return storage.ErrEmailTaken
	}

	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username = ?", user.Username,
	).Scan(&n); err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if n > 0 {
		return storage.ErrUsernameTaken
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, name, username, avatar_url, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Email, user.PasswordHash, user.Name, user.Username, user.AvatarURL, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return tx.Commit()
}

// GetUserByEmail retrieves an account by its login email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", email)
}

// GetUserByID retrieves an account by ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, name, username, avatar_url, created_at FROM users WHERE "+where,
		arg,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Username, &user.AvatarURL, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile updates the public profile fields of an account.
func (s *Store) UpdateProfile(ctx context.Context, userID string, name, username, avatarURL string) (*models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username = ? AND id != ?", username, userID,
	).Scan(&n); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if n > 0 {
		return nil, storage.ErrUsernameTaken
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET name = ?, username = ?, avatar_url = ? WHERE id = ?",
		name, username, avatarURL, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, fmt.Errorf("user: %w", storage.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetUserByID(ctx, userID)
}
