package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/rachajunto/backend/internal/middleware"
	"github.com/rachajunto/backend/internal/models"
	"github.com/rachajunto/backend/internal/money"
)

type withdrawalRequest struct {
	Amount         string `json:"amount" validate:"required"`
	DestinationKey string `json:"destination_key" validate:"required,min=1,max=140"`
}

type withdrawalResponse struct {
	ID             string      `json:"id"`
	Amount         money.Money `json:"amount"`
	DestinationKey string      `json:"destination_key"`
	CreatedAt      int64       `json:"created_at"`
}

func toWithdrawalResponse(w *models.Withdrawal) withdrawalResponse {
	return withdrawalResponse{
		ID:             w.ID,
		Amount:         w.Amount,
		DestinationKey: w.DestinationKey,
		CreatedAt:      w.CreatedAt,
	}
}

// GetWallet returns the authenticated user's balance and withdrawal history.
// The balance is derived on read from paid shares minus withdrawals.
func (h *Handler) GetWallet(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := middleware.UserID(c)

	balance, err := h.store.WalletBalance(ctx, userID)
	if err != nil {
		return domainError(c, err)
	}
	withdrawals, err := h.store.ListWithdrawals(ctx, userID)
	if err != nil {
		return domainError(c, err)
	}

	out := make([]withdrawalResponse, len(withdrawals))
	for i := range withdrawals {
		out[i] = toWithdrawalResponse(&withdrawals[i])
	}
	return c.JSON(fiber.Map{
		"balance":     balance,
		"withdrawals": out,
	})
}

// CreateWithdrawal requests a payout against the wallet balance. The balance
// check and the insert run in one transaction so two concurrent requests
// cannot both drain the same funds.
func (h *Handler) CreateWithdrawal(c *fiber.Ctx) error {
	var req withdrawalRequest
	if err := h.parseBody(c, &req); err != nil {
		return err
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		return domainError(c, err)
	}
	if amount.IsZero() {
		return fiber.NewError(fiber.StatusBadRequest, "withdrawal amount must be positive")
	}

	withdrawal := &models.Withdrawal{
		UserID:         middleware.UserID(c),
		Amount:         amount,
		DestinationKey: req.DestinationKey,
	}
	if err := h.store.CreateWithdrawal(c.Context(), withdrawal); err != nil {
		return domainError(c, err)
	}

	slog.Info("withdrawal requested",
		"user_id", withdrawal.UserID,
		"withdrawal_id", withdrawal.ID,
		"amount", withdrawal.Amount.String(),
	)
	return c.Status(fiber.StatusCreated).JSON(toWithdrawalResponse(withdrawal))
}
