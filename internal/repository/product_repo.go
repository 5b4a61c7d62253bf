package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/pkg/applog"
)

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error)
	Update(ctx context.Context, id int64, input *domain.UpdateProductInput) error
	DeleteByID(ctx context.Context, id int64) error
	IncrementViewCount(ctx context.Context, id int64) error

	// DecreaseStock applies a compare-and-set decrement: it only succeeds
	// when the current stock covers the quantity, which is what serializes
	// concurrent checkouts racing for the same product.
	DecreaseStock(ctx context.Context, tx pgx.Tx, id int64, quantity int32) error
	RestoreStock(ctx context.Context, tx pgx.Tx, id int64, quantity int32) error

	AddImage(ctx context.Context, image *domain.ProductImage) error
	DeleteImage(ctx context.Context, productID, imageID int64) error
	SetPrimaryImage(ctx context.Context, productID, imageID int64) error
	GetImages(ctx context.Context, productID int64) ([]domain.ProductImage, error)
}

type productRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewProductRepository(pool *pgxpool.Pool, logger *zap.Logger) ProductRepository {
	return &productRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/product_repo"),
	}
}

const productColumns = `id, category_id, name, description, price, discount_price,
		stock, status, view_count, sold_count, created_at, updated_at`

func scanProduct(row pgx.Row, p *domain.Product) error {
	return row.Scan(
		&p.ID,
		&p.CategoryID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.DiscountPrice,
		&p.Stock,
		&p.Status,
		&p.ViewCount,
		&p.SoldCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func (r *productRepo) Create(ctx context.Context, product *domain.Product) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("name", product.Name),
	)

	product.NormalizeStatus()

	query := `
		INSERT INTO products (category_id, name, description, price, discount_price, stock, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		product.CategoryID,
		product.Name,
		product.Description,
		product.Price,
		product.DiscountPrice,
		product.Stock,
		string(product.Status),
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		span.RecordError(err)

		applog.Error(ctx, r.logger, "Error creating product", zap.Error(err))

		return fmt.Errorf("error creating product: %w", err)
	}

	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE id = $1 AND deleted_at IS NULL
	`, productColumns)

	var p domain.Product
	if err := scanProduct(r.pool.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)

		applog.Error(
			ctx,
			r.logger,
			"Error getting product by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting product: %w", err)
	}

	images, err := r.GetImages(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Images = images

	return &p, nil
}

func (r *productRepo) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("limit", filter.Limit),
		attribute.Int64("offset", filter.Offset),
		attribute.String("search", filter.Search),
	)

	baseQuery := fmt.Sprintf(`SELECT %s FROM products WHERE deleted_at IS NULL`, productColumns)
	countQuery := `SELECT COUNT(*) FROM products WHERE deleted_at IS NULL`

	var args []interface{}
	argId := 1

	if filter.Search != "" {
		clause := fmt.Sprintf(" AND name ILIKE $%d", argId)
		baseQuery += clause
		countQuery += clause
		args = append(args, "%"+filter.Search+"%")
		argId++
	}

	if filter.CategoryID != 0 {
		clause := fmt.Sprintf(" AND category_id = $%d", argId)
		baseQuery += clause
		countQuery += clause
		args = append(args, filter.CategoryID)
		argId++
	}

	countArgs := make([]interface{}, len(args))
	copy(countArgs, args)

	baseQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argId, argId+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, baseQuery, args...)
	if err != nil {
		span.RecordError(err)

		applog.Error(ctx, r.logger, "Error selecting products", zap.Error(err))

		return nil, 0, fmt.Errorf("error selecting products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			span.RecordError(err)

			return nil, 0, fmt.Errorf("error scanning product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	var totalCount int64
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&totalCount); err != nil {
		span.RecordError(err)

		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	return products, totalCount, nil
}

func (r *productRepo) Update(ctx context.Context, id int64, input *domain.UpdateProductInput) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	var updates []string
	var args []interface{}
	argId := 1

	appendUpdate := func(column string, value interface{}) {
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argId))
		args = append(args, value)
		argId++
	}

	if input.CategoryID != nil {
		appendUpdate("category_id", *input.CategoryID)
	}
	if input.Name != nil {
		appendUpdate("name", *input.Name)
	}
	if input.Description != nil {
		appendUpdate("description", *input.Description)
	}
	if input.Price != nil {
		appendUpdate("price", *input.Price)
	}
	if input.DiscountPrice != nil {
		appendUpdate("discount_price", *input.DiscountPrice)
	}
	if input.Stock != nil {
		appendUpdate("stock", *input.Stock)
	}
	if input.Status != nil {
		appendUpdate("status", *input.Status)
	}

	if len(updates) == 0 {
		return nil
	}

	updates = append(updates, "updated_at = NOW()")

	query := "UPDATE products SET " + strings.Join(updates, ", ") +
		fmt.Sprintf(" WHERE id = $%d AND deleted_at IS NULL", argId)
	args = append(args, id)

	commandTag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)

		applog.Error(ctx, r.logger, "Error updating product", zap.Int64("id", id), zap.Error(err))

		return fmt.Errorf("error updating product: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	// Stock edits must keep the stock/status invariant.
	if input.Stock != nil || input.Status != nil {
		normalize := `
			UPDATE products
			SET status = CASE
				WHEN stock = 0 THEN 'out_of_stock'
				WHEN stock > 0 AND status = 'out_of_stock' THEN 'active'
				ELSE status
			END
			WHERE id = $1 AND deleted_at IS NULL
		`
		if _, err := r.pool.Exec(ctx, normalize, id); err != nil {
			span.RecordError(err)

			return fmt.Errorf("error normalizing product status: %w", err)
		}
	}

	return nil
}

func (r *productRepo) DeleteByID(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.DeleteByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	// Also flips status so carts still holding the product reject it at
	// checkout.
	query := `
		UPDATE products
		SET deleted_at = NOW(), status = 'inactive', updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	commandTag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		span.RecordError(err)

		applog.Error(ctx, r.logger, "Error deleting product", zap.Int64("id", id), zap.Error(err))

		return fmt.Errorf("error deleting product: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (r *productRepo) IncrementViewCount(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.IncrementViewCount")
	defer span.End()

	_, err := r.pool.Exec(
		ctx,
		`UPDATE products SET view_count = view_count + 1 WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		span.RecordError(err)
	}

	return err
}

func (r *productRepo) DecreaseStock(ctx context.Context, tx pgx.Tx, id int64, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.DecreaseStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.Int("quantity", int(quantity)),
	)

	// The stock >= $2 guard is the compare-and-set: of two transactions
	// racing for the last units, one sees zero rows affected and fails.
	query := `
		UPDATE products
		SET stock = stock - $2,
			sold_count = sold_count + $2,
			status = CASE WHEN stock - $2 = 0 THEN 'out_of_stock' ELSE status END,
			updated_at = NOW()
		WHERE id = $1
			AND stock >= $2
			AND deleted_at IS NULL
	`

	commandTag, err := tx.Exec(ctx, query, id, quantity)
	if err != nil {
		span.RecordError(err)

		applog.Error(
			ctx,
			r.logger,
			"Error decreasing stock",
			zap.Int64("id", id),
			zap.Int32("quantity", quantity),
			zap.Error(err),
		)

		return fmt.Errorf("error decreasing stock for product %d: %w", id, err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}

	return nil
}

func (r *productRepo) RestoreStock(ctx context.Context, tx pgx.Tx, id int64, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.RestoreStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.Int("quantity", int(quantity)),
	)

	// No deleted_at filter here. Cancelling an order must restore stock
	// even when the product has been soft deleted since the purchase.
	query := `
		UPDATE products
		SET stock = stock + $2,
			sold_count = sold_count - $2,
			status = CASE WHEN status = 'out_of_stock' THEN 'active' ELSE status END,
			updated_at = NOW()
		WHERE id = $1
	`

	commandTag, err := tx.Exec(ctx, query, id, quantity)
	if err != nil {
		span.RecordError(err)

		applog.Error(
			ctx,
			r.logger,
			"Error restoring stock",
			zap.Int64("id", id),
			zap.Int32("quantity", quantity),
			zap.Error(err),
		)

		return fmt.Errorf("error restoring stock for product %d: %w", id, err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (r *productRepo) AddImage(ctx context.Context, image *domain.ProductImage) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.AddImage")
	defer span.End()

	query := `
		INSERT INTO product_images (product_id, url, is_primary, sort_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		image.ProductID,
		image.URL,
		image.IsPrimary,
		image.SortOrder,
	).Scan(&image.ID)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("error adding product image: %w", err)
	}

	return nil
}

func (r *productRepo) DeleteImage(ctx context.Context, productID, imageID int64) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.DeleteImage")
	defer span.End()

	commandTag, err := r.pool.Exec(
		ctx,
		`DELETE FROM product_images WHERE id = $1 AND product_id = $2`,
		imageID,
		productID,
	)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("error deleting product image: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductImageNotFound
	}

	return nil
}

func (r *productRepo) SetPrimaryImage(ctx context.Context, productID, imageID int64) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.SetPrimaryImage")
	defer span.End()

	commandTag, err := r.pool.Exec(
		ctx,
		`UPDATE product_images SET is_primary = (id = $1) WHERE product_id = $2`,
		imageID,
		productID,
	)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("error setting primary image: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductImageNotFound
	}

	return nil
}

func (r *productRepo) GetImages(ctx context.Context, productID int64) ([]domain.ProductImage, error) {
	query := `
		SELECT id, product_id, url, is_primary, sort_order
		FROM product_images
		WHERE product_id = $1
		ORDER BY sort_order ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("error selecting product images: %w", err)
	}
	defer rows.Close()

	var images []domain.ProductImage
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.IsPrimary, &img.SortOrder); err != nil {
			return nil, fmt.Errorf("error scanning product image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return images, nil
}
