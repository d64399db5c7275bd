package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/rachajunto/backend/internal/membership"
	"github.com/rachajunto/backend/internal/middleware"
	"github.com/rachajunto/backend/internal/models"
	"github.com/rachajunto/backend/internal/money"
	"github.com/rachajunto/backend/internal/settlement"
)

type createPoolRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	PoolType    string `json:"pool_type" validate:"required,oneof=one-time subscription recurring"`
	Category    string `json:"category" validate:"max=50"`
	TotalAmount string `json:"total_amount" validate:"required"`
	Frequency   string `json:"frequency" validate:"omitempty,oneof=weekly biweekly monthly quarterly semiannually yearly"`
	NextDueDate string `json:"next_due_date" validate:"omitempty,datetime=2006-01-02"`
	AutoRenew   bool   `json:"auto_renew"`
}

// CreatePool opens a new pool in a group. Only owners and admins of the
// group may create pools.
func (h *Handler) CreatePool(c *fiber.Ctx) error {
	var req createPoolRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.Context()
	groupID := c.Params("groupId")
	userID := middleware.UserID(c)

	member, err := h.store.GetMember(ctx, groupID, userID)
	if err != nil {
		return domainError(c, err)
	}
	if !member.Active || !membership.CanManagePools(member.Role) {
		return fiber.NewError(fiber.StatusForbidden, "only group owners and admins may create pools")
	}

	total, err := money.Parse(req.TotalAmount)
	if err != nil {
		return domainError(c, err)
	}

	pool := &models.FinancialPool{
		GroupID:     groupID,
		CreatedBy:   userID,
		Title:       req.Title,
		Description: req.Description,
		PoolType:    models.PoolType(req.PoolType),
		Category:    req.Category,
		TotalAmount: total,
		Frequency:   models.Frequency(req.Frequency),
		NextDueDate: req.NextDueDate,
		AutoRenew:   req.AutoRenew,
	}
	if err := pool.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := h.store.CreatePool(ctx, pool); err != nil {
		return domainError(c, err)
	}

	slog.Info("pool created",
		"pool_id", pool.ID,
		"group_id", groupID,
		"total", pool.TotalAmount.String(),
		"type", pool.PoolType,
	)
	return c.Status(fiber.StatusCreated).JSON(toPoolResponse(pool))
}

// GetPool returns a pool with its participants and payment progress.
func (h *Handler) GetPool(c *fiber.Ctx) error {
	ctx := c.Context()
	poolID := c.Params("poolId")

	pool, err := h.store.GetPool(ctx, poolID)
	if err != nil {
		return domainError(c, err)
	}
	participants, err := h.store.ListParticipants(ctx, poolID)
	if err != nil {
		return domainError(c, err)
	}
	progress, err := settlement.PoolProgress(pool, participants)
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(fiber.Map{
		"pool":         toPoolResponse(pool),
		"participants": toParticipantResponses(participants),
		"progress":     toProgressResponse(progress),
	})
}

type reconciliationResponse struct {
	UserID    string      `json:"user_id"`
	PaidShare money.Money `json:"paid_share"`
	NewShare  money.Money `json:"new_share"`
}

// JoinPool admits the authenticated user into the pool and rebalances every
// share. When someone who already paid ends up owing a different amount, the
// response carries a reconciliations list so the client can surface it.
func (h *Handler) JoinPool(c *fiber.Ctx) error {
	poolID := c.Params("poolId")
	userID := middleware.UserID(c)

	result, err := h.store.JoinPool(c.Context(), poolID, userID)
	h.metrics.ObserveSettlement("pool_join", err)
	if err != nil {
		return domainError(c, err)
	}

	reconciliations := make([]reconciliationResponse, len(result.Reconciliations))
	for i, rec := range result.Reconciliations {
		reconciliations[i] = reconciliationResponse{
			UserID:    rec.UserID,
			PaidShare: rec.PaidShare,
			NewShare:  rec.NewShare,
		}
	}
	if len(reconciliations) > 0 {
		slog.Warn("join changed already-paid shares",
			"pool_id", poolID,
			"affected", len(reconciliations),
		)
	}

	slog.Info("participant joined pool",
		"pool_id", poolID,
		"user_id", userID,
		"share", result.Added.ShareAmount.String(),
		"participants", len(result.Participants),
	)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"participants":    toParticipantResponses(result.Participants),
		"reconciliations": reconciliations,
	})
}

// PayShare marks the authenticated user's share as paid.
func (h *Handler) PayShare(c *fiber.Ctx) error {
	poolID := c.Params("poolId")
	userID := middleware.UserID(c)

	paid, err := h.store.MarkParticipantPaid(c.Context(), poolID, userID)
	h.metrics.ObserveSettlement("mark_paid", err)
	if err != nil {
		return domainError(c, err)
	}

	slog.Info("share paid", "pool_id", poolID, "user_id", userID, "amount", paid.ShareAmount.String())
	return c.JSON(toParticipantResponses([]models.PoolParticipant{*paid})[0])
}
