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

type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id int64) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Update(ctx context.Context, id int64, input *domain.UpdateCategoryInput) error
	DeleteByID(ctx context.Context, id int64) error
}

type categoryRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCategoryRepository(pool *pgxpool.Pool, logger *zap.Logger) CategoryRepository {
	return &categoryRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/category_repo"),
	}
}

func (r *categoryRepo) Create(ctx context.Context, category *domain.Category) error {
	ctx, span := r.tracer.Start(ctx, "CategoryRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("name", category.Name),
	)

	query := `
		INSERT INTO categories (name, description, parent_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		category.Name,
		category.Description,
		category.ParentID,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		span.RecordError(err)

		applog.Error(ctx, r.logger, "Error creating category", zap.Error(err))

		return fmt.Errorf("error creating category: %w", err)
	}

	return nil
}

func (r *categoryRepo) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	ctx, span := r.tracer.Start(ctx, "CategoryRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT id, name, description, parent_id, created_at, updated_at
		FROM categories
		WHERE id = $1
	`

	var c domain.Category
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.ParentID,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}

		span.RecordError(err)

		return nil, fmt.Errorf("error getting category: %w", err)
	}

	return &c, nil
}

func (r *categoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	ctx, span := r.tracer.Start(ctx, "CategoryRepository.List")
	defer span.End()

	query := `
		SELECT id, name, description, parent_id, created_at, updated_at
		FROM categories
		ORDER BY name ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("error selecting categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Description,
			&c.ParentID,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return categories, nil
}

func (r *categoryRepo) Update(ctx context.Context, id int64, input *domain.UpdateCategoryInput) error {
	ctx, span := r.tracer.Start(ctx, "CategoryRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	var updates []string
	var args []interface{}
	argId := 1

	if input.Name != nil {
		updates = append(updates, fmt.Sprintf("name = $%d", argId))
		args = append(args, *input.Name)
		argId++
	}

	if input.Description != nil {
		updates = append(updates, fmt.Sprintf("description = $%d", argId))
		args = append(args, *input.Description)
		argId++
	}

	if input.ParentID != nil {
		updates = append(updates, fmt.Sprintf("parent_id = $%d", argId))
		args = append(args, *input.ParentID)
		argId++
	}

	if len(updates) == 0 {
		return nil
	}

	updates = append(updates, "updated_at = NOW()")

	query := "UPDATE categories SET " + strings.Join(updates, ", ") +
		fmt.Sprintf(" WHERE id = $%d", argId)
	args = append(args, id)

	commandTag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)

		applog.Error(ctx, r.logger, "Error updating category", zap.Int64("id", id), zap.Error(err))

		return fmt.Errorf("error updating category: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

func (r *categoryRepo) DeleteByID(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "CategoryRepository.DeleteByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	commandTag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("error deleting category: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}

	return nil
}
