package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rachajunto/backend/internal/middleware"
)

type updateProfileRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=100"`
	Username  string `json:"username" validate:"required,min=3,max=30"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

// GetProfile returns another user's public profile.
func (h *Handler) GetProfile(c *fiber.Ctx) error {
	user, err := h.store.GetUserByID(c.Context(), c.Params("userId"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(toUserResponse(user, false))
}

// UpdateProfile updates the authenticated user's profile fields.
// The avatar itself lives on external storage; only its URL is kept here.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.store.UpdateProfile(c.Context(), middleware.UserID(c), req.Name, req.Username, req.AvatarURL)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(toUserResponse(user, true))
}
