// Package routes wires handlers and middleware onto the fiber app.
package routes

import (
	"strconv"
	"time"

	"fraudguard/internal/config"
	"fraudguard/internal/handlers"
	"fraudguard/internal/middleware"
	"fraudguard/internal/repositories/cache"
	"fraudguard/internal/services/network"
	"fraudguard/internal/services/transaction"
	"fraudguard/internal/utils"
	"fraudguard/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"
)

// Dependencies are the services the HTTP layer exposes.
type Dependencies struct {
	Transactions transaction.Service
	Network      *network.Service
	Cache        cache.Store
	Checks       map[string]handlers.Check
	Server       config.ServerConfig
	Auth         config.AuthConfig
	Logger       *zap.Logger
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	healthHandler := handlers.NewHealthHandler(deps.Checks, logger)
	transactionHandler := handlers.NewTransactionHandler(deps.Transactions, logger)
	networkHandler := handlers.NewNetworkHandler(deps.Network, logger)
	authMiddleware := middleware.NewAuthMiddleware(deps.Auth.JWTSecret, logger)

	app.Get("/health", healthHandler.HealthCheck)

	api := app.Group("/api", authMiddleware.Handler)

	api.Post("/transactions", transactionLimiter(deps), transactionHandler.CreateTransaction)
	api.Get("/transactions", transactionHandler.ListTransactions)
	api.Get("/balance", transactionHandler.GetBalance)
	api.Post("/accounts", transactionHandler.CreateAccount)

	admin := api.Group("/admin", middleware.AdminOnly)
	admin.Get("/network-graph", networkHandler.GetGraph)
}

// transactionLimiter limits submissions per user. Counters live in the
// injected cache so every instance shares them.
func transactionLimiter(deps Dependencies) fiber.Handler {
	limit := deps.Server.RateLimitMax
	if limit <= 0 {
		limit = 30
	}
	window := deps.Server.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	cfg := limiter.Config{
		Max:        limit,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if claims, err := utils.GetUserClaims(c); err == nil {
				return "user:" + strconv.FormatUint(uint64(claims.UserID), 10)
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, fiber.StatusTooManyRequests, "too many requests, please try again later")
		},
	}
	if deps.Cache != nil {
		cfg.Storage = cache.NewStorageAdapter(deps.Cache, "ratelimit:")
	}
	return limiter.New(cfg)
}
