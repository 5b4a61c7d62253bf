package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/guts-yang/estone-api/internal/repository"
	"github.com/guts-yang/estone-api/internal/service"
)

// statusFromError maps domain failures onto HTTP codes. Anything not
// recognized is a server fault.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrProductImageNotFound),
		errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrCartItemNotFound),
		errors.Is(err, repository.ErrOrderNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrUsernameTaken),
		errors.Is(err, repository.ErrEmailTaken),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrProductUnavailable),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrWrongPassword):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrAccountDisabled):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(statusFromError(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}
