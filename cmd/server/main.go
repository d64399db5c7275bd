package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/rachajunto/backend/internal/auth"
	"github.com/rachajunto/backend/internal/config"
	"github.com/rachajunto/backend/internal/handlers"
	"github.com/rachajunto/backend/internal/metrics"
	"github.com/rachajunto/backend/internal/middleware"
	"github.com/rachajunto/backend/internal/routes"
	"github.com/rachajunto/backend/internal/storage/sqlite"
	"github.com/rachajunto/backend/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)
	m := metrics.New()
	h := handlers.New(store, authenticator, jwtManager, m)

	app := fiber.New(fiber.Config{
		AppName:      "rachajunto",
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(m.Middleware())
	app.Use(middleware.RequestLogger())

	routes.Setup(app, h, jwtManager, m)

	addr := ":" + cfg.Port
	slog.Info("Server starting", "address", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// errorHandler renders every error as a JSON body with the right status.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}
