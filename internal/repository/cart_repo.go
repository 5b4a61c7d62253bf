package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/pkg/applog"
)

type CartRepository interface {
	Create(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Cart, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Cart, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Cart, error)
	GetItems(ctx context.Context, cartID int64) ([]domain.CartItem, error)
	GetItemsTx(ctx context.Context, tx pgx.Tx, cartID int64) ([]domain.CartItem, error)
	FindItemByProduct(ctx context.Context, tx pgx.Tx, cartID, productID int64) (*domain.CartItem, error)
	FindItem(ctx context.Context, tx pgx.Tx, cartID, itemID int64) (*domain.CartItem, error)
	InsertItem(ctx context.Context, tx pgx.Tx, item *domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, tx pgx.Tx, itemID int64, quantity int32) error
	DeleteItem(ctx context.Context, tx pgx.Tx, itemID int64) error
	DeleteAllItems(ctx context.Context, tx pgx.Tx, cartID int64) error

	// SyncTotal recomputes the cached cart total from the line items in
	// the same transaction as the mutation it follows.
	SyncTotal(ctx context.Context, tx pgx.Tx, cartID int64) (int64, error)
}

type cartRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCartRepository(pool *pgxpool.Pool, logger *zap.Logger) CartRepository {
	return &cartRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/cart_repo"),
	}
}

func (r *cartRepo) Create(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Cart, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	query := `
		INSERT INTO carts (user_id, total_amount)
		VALUES ($1, 0)
		RETURNING id, user_id, total_amount, created_at, updated_at
	`

	var cart domain.Cart
	if err := tx.QueryRow(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.TotalAmount,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	); err != nil {
		span.RecordError(err)

		applog.Error(
			ctx,
			r.logger,
			"Error creating cart",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error creating cart: %w", err)
	}

	return &cart, nil
}

func (r *cartRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Cart, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.GetByUserID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	query := `
		SELECT id, user_id, total_amount, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`

	var cart domain.Cart
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.TotalAmount,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}

		span.RecordError(err)

		return nil, fmt.Errorf("error getting cart: %w", err)
	}

	return &cart, nil
}

// GetByUserIDForUpdate locks the cart row for the rest of the transaction,
// so two checkouts against the same cart cannot interleave.
func (r *cartRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Cart, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.GetByUserIDForUpdate")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	query := `
		SELECT id, user_id, total_amount, created_at, updated_at
		FROM carts
		WHERE user_id = $1
		FOR UPDATE
	`

	var cart domain.Cart
	if err := tx.QueryRow(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.TotalAmount,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}

		span.RecordError(err)

		return nil, fmt.Errorf("error locking cart: %w", err)
	}

	return &cart, nil
}

const cartItemColumns = `
		ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.price,
		p.name, p.stock, p.status`

func (r *cartRepo) queryItems(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, cartID int64,
) ([]domain.CartItem, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id ASC
	`, cartItemColumns)

	rows, err := q.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("error selecting cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.ProductName,
			&item.ProductStock,
			&item.ProductStatus,
		); err != nil {
			return nil, fmt.Errorf("error scanning cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return items, nil
}

func (r *cartRepo) GetItems(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.GetItems")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("cart_id", cartID),
	)

	items, err := r.queryItems(ctx, r.pool, cartID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return items, nil
}

func (r *cartRepo) GetItemsTx(ctx context.Context, tx pgx.Tx, cartID int64) ([]domain.CartItem, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.GetItemsTx")
	defer span.End()

	items, err := r.queryItems(ctx, tx, cartID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return items, nil
}

func (r *cartRepo) FindItemByProduct(ctx context.Context, tx pgx.Tx, cartID, productID int64) (*domain.CartItem, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.FindItemByProduct")
	defer span.End()

	query := `
		SELECT id, cart_id, product_id, quantity, price
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
	`

	var item domain.CartItem
	if err := tx.QueryRow(ctx, query, cartID, productID).Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Quantity,
		&item.Price,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}

		span.RecordError(err)

		return nil, fmt.Errorf("error finding cart item: %w", err)
	}

	return &item, nil
}

func (r *cartRepo) FindItem(ctx context.Context, tx pgx.Tx, cartID, itemID int64) (*domain.CartItem, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.FindItem")
	defer span.End()

	query := `
		SELECT id, cart_id, product_id, quantity, price
		FROM cart_items
		WHERE id = $1 AND cart_id = $2
	`

	var item domain.CartItem
	if err := tx.QueryRow(ctx, query, itemID, cartID).Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Quantity,
		&item.Price,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}

		span.RecordError(err)

		return nil, fmt.Errorf("error finding cart item: %w", err)
	}

	return &item, nil
}

func (r *cartRepo) InsertItem(ctx context.Context, tx pgx.Tx, item *domain.CartItem) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.InsertItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("cart_id", item.CartID),
		attribute.Int64("product_id", item.ProductID),
	)

	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if err := tx.QueryRow(
		ctx,
		query,
		item.CartID,
		item.ProductID,
		item.Quantity,
		item.Price,
	).Scan(&item.ID); err != nil {
		span.RecordError(err)

		applog.Error(ctx, r.logger, "Error inserting cart item", zap.Error(err))

		return fmt.Errorf("error inserting cart item: %w", err)
	}

	return nil
}

func (r *cartRepo) UpdateItemQuantity(ctx context.Context, tx pgx.Tx, itemID int64, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.UpdateItemQuantity")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("item_id", itemID),
		attribute.Int("quantity", int(quantity)),
	)

	commandTag, err := tx.Exec(
		ctx,
		`UPDATE cart_items SET quantity = $2, updated_at = NOW() WHERE id = $1`,
		itemID,
		quantity,
	)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("error updating cart item: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *cartRepo) DeleteItem(ctx context.Context, tx pgx.Tx, itemID int64) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.DeleteItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("item_id", itemID),
	)

	commandTag, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("error deleting cart item: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *cartRepo) DeleteAllItems(ctx context.Context, tx pgx.Tx, cartID int64) error {
	ctx, span := r.tracer.Start(ctx, "CartRepository.DeleteAllItems")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("cart_id", cartID),
	)

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		span.RecordError(err)

		return fmt.Errorf("error clearing cart items: %w", err)
	}

	return nil
}

func (r *cartRepo) SyncTotal(ctx context.Context, tx pgx.Tx, cartID int64) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "CartRepository.SyncTotal")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("cart_id", cartID),
	)

	query := `
		UPDATE carts
		SET total_amount = COALESCE(
				(SELECT SUM(price * quantity) FROM cart_items WHERE cart_id = $1), 0),
			updated_at = NOW()
		WHERE id = $1
		RETURNING total_amount
	`

	var total int64
	if err := tx.QueryRow(ctx, query, cartID).Scan(&total); err != nil {
		span.RecordError(err)

		applog.Error(
			ctx,
			r.logger,
			"Error syncing cart total",
			zap.Int64("cart_id", cartID),
			zap.Error(err),
		)

		return 0, fmt.Errorf("error syncing cart total: %w", err)
	}

	return total, nil
}
