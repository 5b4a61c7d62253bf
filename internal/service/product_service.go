package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/internal/repository"
	"github.com/guts-yang/estone-api/pkg/applog"
)

type ProductService interface {
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error)
	Update(ctx context.Context, id int64, input *domain.UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	AddImage(ctx context.Context, image *domain.ProductImage) (*domain.ProductImage, error)
	DeleteImage(ctx context.Context, productID, imageID int64) error
	SetPrimaryImage(ctx context.Context, productID, imageID int64) error
}

type productService struct {
	pool        *pgxpool.Pool
	logger      *zap.Logger
	productRepo repository.ProductRepository
	tracer      trace.Tracer
}

func NewProductService(
	pool *pgxpool.Pool,
	logger *zap.Logger,
	productRepo repository.ProductRepository,
) ProductService {
	return &productService{
		pool:        pool,
		logger:      logger,
		productRepo: productRepo,
		tracer:      otel.Tracer("product_service"),
	}
}

func (s *productService) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("product_name", product.Name),
	)

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	applog.Info(ctx, s.logger, "Product created",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name),
	)

	return product, nil
}

func (s *productService) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.FindByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", id),
	)

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// View counting is best effort and must not fail the read.
	if err := s.productRepo.IncrementViewCount(ctx, id); err != nil {
		applog.Warn(ctx, s.logger, "Failed to increment view count",
			zap.Int64("product_id", id),
			zap.Error(err),
		)
	}

	return product, nil
}

func (s *productService) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.List")
	defer span.End()

	span.SetAttributes(
		attribute.String("search", filter.Search),
	)

	return s.productRepo.List(ctx, filter)
}

func (s *productService) Update(ctx context.Context, id int64, input *domain.UpdateProductInput) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", id),
	)

	if err := s.productRepo.Update(ctx, id, input); err != nil {
		return nil, err
	}

	return s.productRepo.GetByID(ctx, id)
}

func (s *productService) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "ProductService.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", id),
	)

	return s.productRepo.DeleteByID(ctx, id)
}

func (s *productService) AddImage(ctx context.Context, image *domain.ProductImage) (*domain.ProductImage, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.AddImage")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", image.ProductID),
	)

	if _, err := s.productRepo.GetByID(ctx, image.ProductID); err != nil {
		return nil, err
	}

	if err := s.productRepo.AddImage(ctx, image); err != nil {
		return nil, err
	}

	return image, nil
}

func (s *productService) DeleteImage(ctx context.Context, productID, imageID int64) error {
	ctx, span := s.tracer.Start(ctx, "ProductService.DeleteImage")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.Int64("image_id", imageID),
	)

	return s.productRepo.DeleteImage(ctx, productID, imageID)
}

func (s *productService) SetPrimaryImage(ctx context.Context, productID, imageID int64) error {
	ctx, span := s.tracer.Start(ctx, "ProductService.SetPrimaryImage")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.Int64("image_id", imageID),
	)

	return s.productRepo.SetPrimaryImage(ctx, productID, imageID)
}
