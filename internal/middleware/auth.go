package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rachajunto/backend/internal/auth"
)

const (
	// userIDLocal is the fiber.Ctx locals key for the authenticated user ID.
	userIDLocal = "user_id"
	// usernameLocal is the fiber.Ctx locals key for the authenticated username.
	usernameLocal = "username"
)

// RequireAuth returns a middleware that validates the Bearer token and stores
// the authenticated identity in the request locals. Every mutating route runs
// behind it; the domain layer trusts the user ID it provides.
func RequireAuth(jwtManager *auth.JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, auth.ErrMissingToken.Error())
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || scheme != "Bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, auth.ErrInvalidToken.Error())
		}

		claims, err := jwtManager.Validate(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, auth.ErrInvalidToken.Error())
		}

		c.Locals(userIDLocal, claims.UserID)
		c.Locals(usernameLocal, claims.Username)
		return c.Next()
	}
}

// UserID extracts the authenticated user ID from the request.
// Returns empty string outside RequireAuth.
func UserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(userIDLocal).(string)
	return userID
}

// Username extracts the authenticated username from the request.
func Username(c *fiber.Ctx) string {
	username, _ := c.Locals(usernameLocal).(string)
	return username
}
