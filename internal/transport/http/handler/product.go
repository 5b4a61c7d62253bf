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

type ProductHandler struct {
	productService service.ProductService
	validate       *validator.Validate
	logger         *zap.Logger
}

func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		validate:       validator.New(),
		logger:         logger,
	}
}

type CreateProductInput struct {
	CategoryID    int64  `json:"category_id" validate:"required,gt=0"`
	Name          string `json:"name" validate:"required,min=3,max=100"`
	Description   string `json:"description" validate:"max=1000"`
	Price         int64  `json:"price" validate:"required,gt=0"`
	DiscountPrice *int64 `json:"discount_price" validate:"omitempty,gt=0"`
	Stock         int64  `json:"stock" validate:"gte=0"`
}

type AddProductImageInput struct {
	URL       string `json:"url" validate:"required,url"`
	IsPrimary bool   `json:"is_primary"`
	SortOrder int32  `json:"sort_order" validate:"gte=0"`
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	input := new(CreateProductInput)

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

	product := &domain.Product{
		CategoryID:    input.CategoryID,
		Name:          input.Name,
		Description:   input.Description,
		Price:         input.Price,
		DiscountPrice: input.DiscountPrice,
		Stock:         input.Stock,
		Status:        domain.ProductStatusActive,
	}

	created, err := h.productService.Create(c.UserContext(), product)
	if err != nil {
		applog.Warn(
			c.UserContext(),
			h.logger,
			"create product failed",
			zap.String("name", input.Name),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"product": created,
	})
}

func (h *ProductHandler) FindByID(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	product, err := h.productService.FindByID(c.UserContext(), id)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"product": product,
	})
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	filter := domain.ProductFilter{
		Search:     c.Query("search"),
		CategoryID: int64(c.QueryInt("category_id", 0)),
		Limit:      int64(c.QueryInt("limit", 20)),
		Offset:     int64(c.QueryInt("offset", 0)),
	}

	products, total, err := h.productService.List(c.UserContext(), filter)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"products": products,
		"total":    total,
	})
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	input := new(domain.UpdateProductInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	product, err := h.productService.Update(c.UserContext(), id, input)
	if err != nil {
		applog.Warn(
			c.UserContext(),
			h.logger,
			"update product failed",
			zap.Int64("product_id", id),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"product": product,
	})
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	if err := h.productService.Delete(c.UserContext(), id); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "success",
	})
}

func (h *ProductHandler) AddImage(c *fiber.Ctx) error {
	productID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	input := new(AddProductImageInput)
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

	image := &domain.ProductImage{
		ProductID: productID,
		URL:       input.URL,
		IsPrimary: input.IsPrimary,
		SortOrder: input.SortOrder,
	}

	created, err := h.productService.AddImage(c.UserContext(), image)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"image": created,
	})
}

func (h *ProductHandler) DeleteImage(c *fiber.Ctx) error {
	productID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	imageID, err := strconv.ParseInt(c.Params("imageId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	if err := h.productService.DeleteImage(c.UserContext(), productID, imageID); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "success",
	})
}

func (h *ProductHandler) SetPrimaryImage(c *fiber.Ctx) error {
	productID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	imageID, err := strconv.ParseInt(c.Params("imageId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	if err := h.productService.SetPrimaryImage(c.UserContext(), productID, imageID); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "success",
	})
}
