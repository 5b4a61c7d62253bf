package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/internal/service"
	"github.com/guts-yang/estone-api/internal/transport/http/middleware"
	"github.com/guts-yang/estone-api/pkg/applog"
	"github.com/guts-yang/estone-api/pkg/utils"
)

type OrderHandler struct {
	orderService service.OrderService
	validate     *validator.Validate
	logger       *zap.Logger
}

func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		validate:     validator.New(),
		logger:       logger,
	}
}

type PlaceOrderInput struct {
	PaymentMethod   string  `json:"payment_method" validate:"required,oneof=alipay wechat_pay credit_card bank_transfer cash_on_delivery"`
	ShippingAddress string  `json:"shipping_address" validate:"required,max=500"`
	ShippingPhone   string  `json:"shipping_phone" validate:"required,max=20"`
	Notes           *string `json:"notes" validate:"omitempty,max=1000"`
}

type UpdateOrderStatusInput struct {
	Status string `json:"status" validate:"required"`
}

func (h *OrderHandler) Place(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	input := new(PlaceOrderInput)
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

	order, err := h.orderService.PlaceOrder(c.UserContext(), service.PlaceOrderInput{
		UserID:          userID,
		PaymentMethod:   domain.PaymentMethod(input.PaymentMethod),
		ShippingAddress: input.ShippingAddress,
		ShippingPhone:   input.ShippingPhone,
		Notes:           input.Notes,
	})
	if err != nil {
		applog.Warn(
			c.UserContext(),
			h.logger,
			"place order failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	applog.Info(
		c.UserContext(),
		h.logger,
		"place order succeeded",
		zap.Int64("order_id", order.ID),
	)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order": order,
	})
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	filter := domain.OrderFilter{
		UserID: userID,
		Limit:  int64(c.QueryInt("limit", 20)),
		Offset: int64(c.QueryInt("offset", 0)),
	}

	// Admins can browse all orders, optionally narrowed to one user.
	if middleware.IsAdmin(c) {
		filter.UserID = int64(c.QueryInt("user_id", 0))
	}

	if statusParam := c.Query("status"); statusParam != "" {
		status, valid := domain.ParseOrderStatus(statusParam)
		if !valid {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown order status",
			})
		}
		filter.Status = status
	}

	orders, total, err := h.orderService.ListOrders(c.UserContext(), filter)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"orders": orders,
		"total":  total,
	})
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	order, err := h.orderService.GetOrder(c.UserContext(), userID, middleware.IsAdmin(c), orderID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"order": order,
	})
}

func (h *OrderHandler) Pay(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	order, err := h.orderService.PayOrder(c.UserContext(), userID, orderID)
	if err != nil {
		applog.Warn(
			c.UserContext(),
			h.logger,
			"pay order failed",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"order": order,
	})
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	order, err := h.orderService.CancelOrder(c.UserContext(), userID, middleware.IsAdmin(c), orderID)
	if err != nil {
		applog.Warn(
			c.UserContext(),
			h.logger,
			"cancel order failed",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"order": order,
	})
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	orderID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	input := new(UpdateOrderStatusInput)
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

	status, valid := domain.ParseOrderStatus(input.Status)
	if !valid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown order status",
		})
	}

	order, err := h.orderService.UpdateStatus(c.UserContext(), orderID, status)
	if err != nil {
		applog.Warn(
			c.UserContext(),
			h.logger,
			"update order status failed",
			zap.Int64("order_id", orderID),
			zap.String("status", input.Status),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"order": order,
	})
}

func (h *OrderHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.orderService.Stats(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"stats": stats,
	})
}
