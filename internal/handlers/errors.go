package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/tapcart/internal/services"
)

// httpError maps a domain error to a fiber error. Unclassified errors pass through as 500s.
func httpError(err error) error {
	var domainErr *services.Error
	if !errors.As(err, &domainErr) {
		return err
	}

	switch domainErr.Kind {
	case services.KindUnauthorized:
		return fiber.NewError(fiber.StatusUnauthorized, domainErr.Message)
	case services.KindForbidden:
		return fiber.NewError(fiber.StatusForbidden, domainErr.Message)
	case services.KindValidation:
		return fiber.NewError(fiber.StatusBadRequest, domainErr.Message)
	case services.KindConflict:
		return fiber.NewError(fiber.StatusConflict, domainErr.Message)
	case services.KindNotFound:
		return fiber.NewError(fiber.StatusNotFound, domainErr.Message)
	case services.KindRateLimited:
		return fiber.NewError(fiber.StatusTooManyRequests, domainErr.Message)
	case services.KindUnavailable:
		return fiber.NewError(fiber.StatusBadGateway, domainErr.Message)
	default:
		return fiber.NewError(fiber.StatusInternalServerError, domainErr.Message)
	}
}

// ErrorHandler renders errors as {"success": false, "error": ...}. Internal details are logged, not returned.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("Request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
}
