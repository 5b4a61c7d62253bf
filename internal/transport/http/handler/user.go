package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/internal/service"
	"github.com/guts-yang/estone-api/pkg/applog"
	"github.com/guts-yang/estone-api/pkg/utils"
)

// UserHandler serves the administrative user endpoints.
type UserHandler struct {
	userService service.UserService
	validate    *validator.Validate
	logger      *zap.Logger
}

func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		validate:    validator.New(),
		logger:      logger,
	}
}

type UpdateUserStatusInput struct {
	Status string `json:"status" validate:"required"`
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	limit := int64(c.QueryInt("limit", 20))
	offset := int64(c.QueryInt("offset", 0))

	users, total, err := h.userService.ListUsers(c.UserContext(), limit, offset)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"users": users,
		"total": total,
	})
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	user, err := h.userService.GetUser(c.UserContext(), userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"user": user,
	})
}

func (h *UserHandler) UpdateStatus(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	input := new(UpdateUserStatusInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	status, valid := domain.ParseUserStatus(input.Status)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown user status",
		})
	}

	user, err := h.userService.UpdateUserStatus(c.UserContext(), userID, status)
	if err != nil {
		applog.Warn(
			c.UserContext(),
			h.logger,
			"update user status failed",
			zap.Int64("user_id", userID),
			zap.String("status", input.Status),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"user": user,
	})
}
