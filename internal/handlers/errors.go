package handlers

import (
	"context"
	"errors"

	apperrors "fraudguard/internal/errors"
	"fraudguard/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// writeError maps a service error onto a status code. Unknown errors are
// logged and reported as 500 without detail.
func writeError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	var (
		validation   *apperrors.ValidationError
		insufficient *apperrors.InsufficientBalanceError
		domain       *apperrors.DomainError
	)

	switch {
	case errors.As(err, &validation):
		return response.ErrorWithDetails(c, fiber.StatusBadRequest, validation.Message, fiber.Map{
			"code":  apperrors.ErrValidation.Code,
			"field": validation.Field,
		})
	case errors.As(err, &insufficient):
		return response.ErrorWithDetails(c, fiber.StatusUnprocessableEntity, apperrors.ErrInsufficientBalance.Message, fiber.Map{
			"code":        apperrors.ErrInsufficientBalance.Code,
			"current":     insufficient.Current.StringFixed(2),
			"projected":   insufficient.Projected.StringFixed(2),
			"min_balance": insufficient.MinBalance.StringFixed(2),
		})
	case errors.Is(err, context.DeadlineExceeded):
		return response.Error(c, fiber.StatusGatewayTimeout, "request timed out")
	case apperrors.IsRetryable(err):
		logger.Error("storage failure", zap.String("path", c.Path()), zap.Error(err))
		return response.ErrorWithDetails(c, fiber.StatusServiceUnavailable, "storage temporarily unavailable", fiber.Map{
			"retryable": true,
		})
	case errors.As(err, &domain):
		return response.ErrorWithDetails(c, domainStatus(domain), domain.Message, fiber.Map{"code": domain.Code})
	}

	logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
	return response.ServerError(c, "internal server error")
}

func domainStatus(err *apperrors.DomainError) int {
	switch err {
	case apperrors.ErrAccountNotFound, apperrors.ErrUserNotFound:
		return fiber.StatusNotFound
	case apperrors.ErrAccountExists:
		return fiber.StatusConflict
	case apperrors.ErrInsufficientBalance:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusBadRequest
	}
}
