package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/rachajunto/backend/internal/models"
)

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	user := &models.User{ID: "user-1", Username: "maria"}

	token, err := manager.Generate(user)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	claims, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", claims.UserID, user.ID)
	}
	if claims.Username != user.Username {
		t.Errorf("Username = %q, want %q", claims.Username, user.Username)
	}
}

func TestJWTValidateRejects(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	user := &models.User{ID: "user-1", Username: "maria"}

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name:  "garbage token",
			token: func(t *testing.T) string { return "not.a.token" },
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				other := NewJWTManager("different-secret", time.Hour)
				token, err := other.Generate(user)
				if err != nil {
					t.Fatalf("Generate() error = %v", err)
				}
				return token
			},
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				expired := NewJWTManager("test-secret", -time.Minute)
				token, err := expired.Generate(user)
				if err != nil {
					t.Fatalf("Generate() error = %v", err)
				}
				return token
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := manager.Validate(tt.token(t)); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestValidUsername(t *testing.T) {
	tests := []struct {
		username string
		want     bool
	}{
		{"maria", true},
		{"maria_silva_99", true},
		{"ab", false},
		{"Maria", false},
		{"maria silva", false},
		{"maria@pix", false},
	}

	for _, tt := range tests {
		if got := validUsername(tt.username); got != tt.want {
			t.Errorf("validUsername(%q) = %v, want %v", tt.username, got, tt.want)
		}
	}
}
