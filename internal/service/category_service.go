package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/internal/repository"
	"github.com/guts-yang/estone-api/pkg/applog"
)

type CategoryService interface {
	Create(ctx context.Context, category *domain.Category) (*domain.Category, error)
	FindByID(ctx context.Context, id int64) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Update(ctx context.Context, id int64, input *domain.UpdateCategoryInput) (*domain.Category, error)
	Delete(ctx context.Context, id int64) error
}

type categoryService struct {
	logger       *zap.Logger
	categoryRepo repository.CategoryRepository
	tracer       trace.Tracer
}

func NewCategoryService(logger *zap.Logger, categoryRepo repository.CategoryRepository) CategoryService {
	return &categoryService{
		logger:       logger,
		categoryRepo: categoryRepo,
		tracer:       otel.Tracer("category_service"),
	}
}

func (s *categoryService) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	ctx, span := s.tracer.Start(ctx, "CategoryService.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("category_name", category.Name),
	)

	if category.ParentID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *category.ParentID); err != nil {
			return nil, err
		}
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	applog.Info(ctx, s.logger, "Category created",
		zap.Int64("category_id", category.ID),
		zap.String("name", category.Name),
	)

	return category, nil
}

func (s *categoryService) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	ctx, span := s.tracer.Start(ctx, "CategoryService.FindByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("category_id", id),
	)

	return s.categoryRepo.GetByID(ctx, id)
}

func (s *categoryService) List(ctx context.Context) ([]domain.Category, error) {
	ctx, span := s.tracer.Start(ctx, "CategoryService.List")
	defer span.End()

	return s.categoryRepo.List(ctx)
}

func (s *categoryService) Update(ctx context.Context, id int64, input *domain.UpdateCategoryInput) (*domain.Category, error) {
	ctx, span := s.tracer.Start(ctx, "CategoryService.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("category_id", id),
	)

	if err := s.categoryRepo.Update(ctx, id, input); err != nil {
		return nil, err
	}

	return s.categoryRepo.GetByID(ctx, id)
}

func (s *categoryService) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "CategoryService.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("category_id", id),
	)

	return s.categoryRepo.DeleteByID(ctx, id)
}
