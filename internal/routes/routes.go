// Package routes wires the HTTP API surface.
package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rachajunto/backend/internal/auth"
	"github.com/rachajunto/backend/internal/handlers"
	"github.com/rachajunto/backend/internal/metrics"
	"github.com/rachajunto/backend/internal/middleware"
)

// Setup configures all application routes.
func Setup(app *fiber.App, h *handlers.Handler, jwtManager *auth.JWTManager, m *metrics.Metrics) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", m.Handler())

	api := app.Group("/api/v1")
	authRequired := middleware.RequireAuth(jwtManager)

	// Auth routes (register and login are public).
	authGroup := api.Group("/auth")
	authGroup.Post("/register", h.Register)
	authGroup.Post("/login", h.Login)
	authGroup.Get("/me", authRequired, h.Me)

	// Profile routes (protected).
	api.Put("/profile", authRequired, h.UpdateProfile)
	api.Get("/users/:userId", authRequired, h.GetProfile)

	// Group and membership routes (protected).
	groups := api.Group("/groups", authRequired)
	groups.Post("/", h.CreateGroup)
	groups.Get("/", h.ListGroups)
	groups.Get("/:groupId", h.GetGroup)
	groups.Post("/:groupId/join", h.JoinGroup)
	groups.Post("/:groupId/members/:userId/promote", h.PromoteMember)
	groups.Post("/:groupId/members/:userId/demote", h.DemoteMember)
	groups.Delete("/:groupId/members/:userId", h.RemoveMember)
	groups.Post("/:groupId/pools", h.CreatePool)

	// Pool and settlement routes (protected).
	pools := api.Group("/pools", authRequired)
	pools.Get("/:poolId", h.GetPool)
	pools.Post("/:poolId/join", h.JoinPool)
	pools.Post("/:poolId/pay", h.PayShare)

	// Wallet routes (protected).
	wallet := api.Group("/wallet", authRequired)
	wallet.Get("/", h.GetWallet)
	wallet.Post("/withdrawals", h.CreateWithdrawal)
}
