// Package handlers implements the HTTP API.
//
// Handlers only validate input, resolve the authenticated user and translate
// domain errors into status codes; every rule lives in the settlement,
// membership and storage packages.
package handlers

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/rachajunto/backend/internal/auth"
	"github.com/rachajunto/backend/internal/membership"
	"github.com/rachajunto/backend/internal/metrics"
	"github.com/rachajunto/backend/internal/models"
	"github.com/rachajunto/backend/internal/money"
	"github.com/rachajunto/backend/internal/settlement"
	"github.com/rachajunto/backend/internal/storage"
)

// Handler bundles the API dependencies.
type Handler struct {
	store         storage.Store
	authenticator auth.Authenticator
	jwt           *auth.JWTManager
	metrics       *metrics.Metrics
	validate      *validator.Validate
}

// New creates the API handler set.
func New(store storage.Store, authenticator auth.Authenticator, jwtManager *auth.JWTManager, m *metrics.Metrics) *Handler {
	return &Handler{
		store:         store,
		authenticator: authenticator,
		jwt:           jwtManager,
		metrics:       m,
		validate:      validator.New(),
	}
}

// parseBody decodes and validates a JSON request body.
func (h *Handler) parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if err := h.validate.Struct(dest); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// domainError translates domain sentinel errors into HTTP errors.
// Invariant violations and malformed rows stay 500s: they indicate bugs, and
// the raw error is logged rather than leaked to the client.
func domainError(c *fiber.Ctx, err error) error {
	var persistence *storage.PersistenceError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "not found")
	case errors.Is(err, membership.ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, money.ErrInvalidAmount):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, settlement.ErrDuplicateParticipant),
		errors.Is(err, settlement.ErrAlreadyPaid),
		errors.Is(err, settlement.ErrPoolClosed),
		errors.Is(err, membership.ErrAlreadyMember),
		errors.Is(err, membership.ErrInvalidTransition),
		errors.Is(err, membership.ErrNotActive),
		errors.Is(err, storage.ErrEmailTaken),
		errors.Is(err, storage.ErrUsernameTaken),
		errors.Is(err, storage.ErrInsufficientBalance):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, settlement.ErrInvariantViolation):
		slog.Error("settlement invariant violated", "path", c.Path(), "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	case errors.As(err, &persistence):
		slog.Error("malformed row rejected at boundary", "path", c.Path(), "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	default:
		slog.Error("request failed", "path", c.Path(), "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
}

// Response shapes. Money fields serialize through money.Money as exact
// decimal strings.

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

func toUserResponse(user *models.User, includeEmail bool) userResponse {
	resp := userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
	}
	if includeEmail {
		resp.Email = user.Email
	}
	return resp
}

type groupResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	OwnerID    string `json:"owner_id"`
	ImageURL   string `json:"image_url,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

func toGroupResponse(group *models.Group) groupResponse {
	return groupResponse{
		ID:         group.ID,
		Name:       group.Name,
		Visibility: string(group.Visibility),
		OwnerID:    group.OwnerID,
		ImageURL:   group.ImageURL,
		CreatedAt:  group.CreatedAt,
	}
}

type memberResponse struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	JoinedAt int64  `json:"joined_at"`
}

func toMemberResponse(member *models.GroupMember) memberResponse {
	return memberResponse{
		UserID:   member.UserID,
		Role:     string(member.Role),
		JoinedAt: member.JoinedAt,
	}
}

type participantResponse struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	ShareAmount money.Money `json:"share_amount"`
	HasPaid     bool        `json:"has_paid"`
	PaidAt      int64       `json:"paid_at,omitempty"`
	CreatedAt   int64       `json:"created_at"`
}

func toParticipantResponses(participants []models.PoolParticipant) []participantResponse {
	out := make([]participantResponse, len(participants))
	for i, p := range participants {
		out[i] = participantResponse{
			ID:          p.ID,
			UserID:      p.UserID,
			ShareAmount: p.ShareAmount,
			HasPaid:     p.HasPaid,
			PaidAt:      p.PaidAt,
			CreatedAt:   p.CreatedAt,
		}
	}
	return out
}

type poolResponse struct {
	ID          string      `json:"id"`
	GroupID     string      `json:"group_id"`
	CreatedBy   string      `json:"created_by"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	PoolType    string      `json:"pool_type"`
	Category    string      `json:"category,omitempty"`
	TotalAmount money.Money `json:"total_amount"`
	Frequency   string      `json:"frequency,omitempty"`
	NextDueDate string      `json:"next_due_date,omitempty"`
	AutoRenew   bool        `json:"auto_renew,omitempty"`
	Status      string      `json:"status"`
	CreatedAt   int64       `json:"created_at"`
}

func toPoolResponse(pool *models.FinancialPool) poolResponse {
	return poolResponse{
		ID:          pool.ID,
		GroupID:     pool.GroupID,
		CreatedBy:   pool.CreatedBy,
		Title:       pool.Title,
		Description: pool.Description,
		PoolType:    string(pool.PoolType),
		Category:    pool.Category,
		TotalAmount: pool.TotalAmount,
		Frequency:   string(pool.Frequency),
		NextDueDate: pool.NextDueDate,
		AutoRenew:   pool.AutoRenew,
		Status:      string(pool.Status),
		CreatedAt:   pool.CreatedAt,
	}
}

type progressResponse struct {
	PaidCount       int         `json:"paid_count"`
	TotalCount      int         `json:"total_count"`
	PaidAmount      money.Money `json:"paid_amount"`
	RemainingAmount money.Money `json:"remaining_amount"`
}

func toProgressResponse(progress settlement.Progress) progressResponse {
	return progressResponse{
		PaidCount:       progress.PaidCount,
		TotalCount:      progress.TotalCount,
		PaidAmount:      progress.PaidAmount,
		RemainingAmount: progress.RemainingAmount,
	}
}
