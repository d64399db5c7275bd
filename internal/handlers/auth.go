package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/rachajunto/backend/internal/middleware"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// Register creates an account and returns a session token.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.authenticator.Register(c.Context(), req.Email, req.Name, req.Username, req.Password)
	if err != nil {
		return domainError(c, err)
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		return domainError(c, err)
	}

	slog.Info("account registered", "user_id", user.ID, "username", user.Username)
	return c.Status(fiber.StatusCreated).JSON(sessionResponse{
		Token: token,
		User:  toUserResponse(user, true),
	})
}

// Login verifies credentials and returns a session token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.authenticator.Authenticate(c.Context(), req.Email, req.Password)
	if err != nil {
		return domainError(c, err)
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(sessionResponse{
		Token: token,
		User:  toUserResponse(user, true),
	})
}

// Me returns the authenticated account.
func (h *Handler) Me(c *fiber.Ctx) error {
	user, err := h.store.GetUserByID(c.Context(), middleware.UserID(c))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(toUserResponse(user, true))
}
