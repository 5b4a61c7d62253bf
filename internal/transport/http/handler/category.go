package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/internal/service"
	"github.com/guts-yang/estone-api/pkg/utils"
)

type CategoryHandler struct {
	categoryService service.CategoryService
	validate        *validator.Validate
	logger          *zap.Logger
}

func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		validate:        validator.New(),
		logger:          logger,
	}
}

type CreateCategoryInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
	ParentID    *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	input := new(CreateCategoryInput)

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

	category := &domain.Category{
		Name:        input.Name,
		Description: input.Description,
		ParentID:    input.ParentID,
	}

	created, err := h.categoryService.Create(c.UserContext(), category)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"category": created,
	})
}

func (h *CategoryHandler) List(c *fiber.Ctx) error {
	categories, err := h.categoryService.List(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"categories": categories,
	})
}

func (h *CategoryHandler) FindByID(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	category, err := h.categoryService.FindByID(c.UserContext(), id)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"category": category,
	})
}

func (h *CategoryHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	input := new(domain.UpdateCategoryInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	category, err := h.categoryService.Update(c.UserContext(), id, input)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"category": category,
	})
}

func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	if err := h.categoryService.Delete(c.UserContext(), id); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "success",
	})
}
