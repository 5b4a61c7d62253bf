package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/internal/service"
	"github.com/guts-yang/estone-api/internal/transport/http/middleware"
	"github.com/guts-yang/estone-api/pkg/applog"
	"github.com/guts-yang/estone-api/pkg/utils"
)

type AuthHandler struct {
	userService service.UserService
	validate    *validator.Validate
	logger      *zap.Logger
}

func NewAuthHandler(userService service.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		validate:    validator.New(),
		logger:      logger,
	}
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordInput struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	input := new(RegisterInput)

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

	user, accessToken, err := h.userService.Register(c.UserContext(), service.RegisterInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		Phone:    input.Phone,
	})
	if err != nil {
		applog.Warn(
			c.UserContext(),
			h.logger,
			"register failed",
			zap.String("username", input.Username),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":  user,
		"token": accessToken,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	input := new(LoginInput)

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

	user, accessToken, err := h.userService.Login(c.UserContext(), input.Username, input.Password)
	if err != nil {
		applog.Warn(
			c.UserContext(),
			h.logger,
			"login failed",
			zap.String("username", input.Username),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"user":  user,
		"token": accessToken,
	})
}

func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	user, err := h.userService.GetMe(c.UserContext(), userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"user": user,
	})
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	input := new(domain.UpdateUserInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	user, profile, err := h.userService.UpdateProfile(c.UserContext(), userID, input)
	if err != nil {
		applog.Warn(
			c.UserContext(),
			h.logger,
			"profile update failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"user":    user,
		"profile": profile,
	})
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	input := new(ChangePasswordInput)
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

	err := h.userService.ChangePassword(c.UserContext(), userID, input.OldPassword, input.NewPassword)
	if err != nil {
		applog.Warn(
			c.UserContext(),
			h.logger,
			"password change failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "success",
	})
}
