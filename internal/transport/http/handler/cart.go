package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/internal/service"
	"github.com/guts-yang/estone-api/internal/transport/http/middleware"
	"github.com/guts-yang/estone-api/pkg/applog"
	"github.com/guts-yang/estone-api/pkg/utils"
)

type CartHandler struct {
	cartService service.CartService
	validate    *validator.Validate
	logger      *zap.Logger
}

func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		validate:    validator.New(),
		logger:      logger,
	}
}

type AddCartItemInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int32 `json:"quantity" validate:"required,gt=0"`
}

type UpdateCartItemInput struct {
	Quantity int32 `json:"quantity" validate:"required,gt=0"`
}

func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	cart, err := h.cartService.GetCart(c.UserContext(), userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"cart": cart,
	})
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	input := new(AddCartItemInput)
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

	cart, err := h.cartService.AddItem(c.UserContext(), userID, input.ProductID, input.Quantity)
	if err != nil {
		applog.Warn(
			c.UserContext(),
			h.logger,
			"add cart item failed",
			zap.Int64("user_id", userID),
			zap.Int64("product_id", input.ProductID),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"cart": cart,
	})
}

func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	itemID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	input := new(UpdateCartItemInput)
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

	cart, err := h.cartService.UpdateItemQuantity(c.UserContext(), userID, itemID, input.Quantity)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"cart": cart,
	})
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	itemID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	cart, err := h.cartService.RemoveItem(c.UserContext(), userID, itemID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"cart": cart,
	})
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	cart, err := h.cartService.Clear(c.UserContext(), userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"cart": cart,
	})
}
