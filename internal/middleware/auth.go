// Package middleware provides HTTP middleware for the fiber server.
package middleware

import (
	"strings"

	"fraudguard/internal/utils"
	"fraudguard/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthMiddleware validates bearer tokens and stores their claims on the
// request. Tokens are HS256 signed with a shared secret.
type AuthMiddleware struct {
	secret string
	logger *zap.Logger
}

func NewAuthMiddleware(secret string, logger *zap.Logger) *AuthMiddleware {
	if secret == "" {
		panic("jwt secret is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{secret: secret, logger: logger}
}

// Handler rejects requests without a valid bearer token.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return response.Unauthorized(c, "missing authorization header")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return response.Unauthorized(c, "invalid authorization format")
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

	claims, err := utils.ParseToken(m.secret, tokenString)
	if err != nil {
		m.logger.Debug("token rejected", zap.String("path", c.Path()), zap.Error(err))
		return response.Unauthorized(c, "invalid token")
	}

	c.Locals(utils.ClaimsKey, claims)
	return c.Next()
}

// AdminOnly must run after Handler.
func AdminOnly(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "unauthorized")
	}
	if !claims.IsAdmin() {
		return response.Forbidden(c)
	}
	return c.Next()
}
