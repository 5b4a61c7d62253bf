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

type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error)
	GetItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus, paymentStatus bool) error
	Stats(ctx context.Context) (*domain.OrderStats, error)
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/order_repo"),
	}
}

const orderColumns = `id, order_number, user_id, total_amount, status, payment_method,
		payment_status, shipping_address, shipping_phone, tracking_number, notes,
		created_at, updated_at`

func scanOrder(row pgx.Row, o *domain.Order) error {
	return row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.TotalAmount,
		&o.Status,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.ShippingAddress,
		&o.ShippingPhone,
		&o.TrackingNumber,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
}

func (r *orderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", order.UserID),
		attribute.Int("items_count", len(order.Items)),
	)

	queryOrder := `
		INSERT INTO orders (order_number, user_id, total_amount, status, payment_method,
			payment_status, shipping_address, shipping_phone, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	if err := tx.QueryRow(
		ctx,
		queryOrder,
		order.OrderNumber,
		order.UserID,
		order.TotalAmount,
		string(order.Status),
		string(order.PaymentMethod),
		order.PaymentStatus,
		order.ShippingAddress,
		order.ShippingPhone,
		order.Notes,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		span.RecordError(err)

		applog.Error(
			ctx,
			r.logger,
			"Failed to insert order",
			zap.Int64("user_id", order.UserID),
			zap.Error(err),
		)

		return fmt.Errorf("error creating order: %w", err)
	}

	queryItem := `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		if err := tx.QueryRow(
			ctx,
			queryItem,
			order.ID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.Price,
			item.TotalPrice,
		).Scan(&item.ID); err != nil {
			span.RecordError(err)

			applog.Error(ctx, r.logger, "Failed to insert order item", zap.Error(err))

			return fmt.Errorf("error creating order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	var o domain.Order
	if err := scanOrder(r.pool.QueryRow(ctx, query, id), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)

		return nil, fmt.Errorf("error getting order: %w", err)
	}

	items, err := r.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

// GetByIDForUpdate locks the order row so concurrent lifecycle calls
// (pay vs cancel) serialize instead of both reading PENDING.
func (r *orderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByIDForUpdate")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1 FOR UPDATE`, orderColumns)

	var o domain.Order
	if err := scanOrder(tx.QueryRow(ctx, query, id), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)

		return nil, fmt.Errorf("error locking order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, product_name, quantity, price, total_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`

	rows, err := tx.Query(ctx, itemsQuery, id)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("error selecting order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.Price,
			&item.TotalPrice,
		); err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return &o, nil
}

func (r *orderRepo) GetItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetItems")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	query := `
		SELECT id, order_id, product_id, product_name, quantity, price, total_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		span.RecordError(err)

		applog.Error(
			ctx,
			r.logger,
			"Failed to query order items",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error selecting order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.Price,
			&item.TotalPrice,
		); err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return items, nil
}

func (r *orderRepo) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", filter.UserID),
		attribute.Int64("limit", filter.Limit),
		attribute.Int64("offset", filter.Offset),
	)

	baseQuery := fmt.Sprintf(`SELECT %s FROM orders WHERE TRUE`, orderColumns)
	countQuery := `SELECT COUNT(*) FROM orders WHERE TRUE`

	var args []interface{}
	argId := 1

	if filter.UserID != 0 {
		clause := fmt.Sprintf(" AND user_id = $%d", argId)
		baseQuery += clause
		countQuery += clause
		args = append(args, filter.UserID)
		argId++
	}

	if filter.Status != "" {
		clause := fmt.Sprintf(" AND status = $%d", argId)
		baseQuery += clause
		countQuery += clause
		args = append(args, string(filter.Status))
		argId++
	}

	countArgs := make([]interface{}, len(args))
	copy(countArgs, args)

	baseQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argId, argId+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, baseQuery, args...)
	if err != nil {
		span.RecordError(err)

		return nil, 0, fmt.Errorf("error selecting orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := scanOrder(rows, &o); err != nil {
			span.RecordError(err)

			return nil, 0, fmt.Errorf("error scanning order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	for i := range orders {
		items, err := r.GetItems(ctx, orders[i].ID)
		if err != nil {
			return nil, 0, err
		}
		orders[i].Items = items
	}

	var totalCount int64
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&totalCount); err != nil {
		span.RecordError(err)

		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return orders, totalCount, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus, paymentStatus bool) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(status)),
	)

	query := `
		UPDATE orders
		SET status = $1, payment_status = $2, updated_at = NOW()
		WHERE id = $3
	`

	commandTag, err := tx.Exec(ctx, query, string(status), paymentStatus, orderID)
	if err != nil {
		span.RecordError(err)

		applog.Error(
			ctx,
			r.logger,
			"Failed to update order status",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return fmt.Errorf("error updating order status: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepo) Stats(ctx context.Context) (*domain.OrderStats, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Stats")
	defer span.End()

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'paid'),
			COUNT(*) FILTER (WHERE status = 'shipped'),
			COUNT(*) FILTER (WHERE status = 'delivered'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COALESCE(SUM(total_amount) FILTER (WHERE status IN ('paid', 'shipped', 'delivered')), 0)
		FROM orders
	`

	var stats domain.OrderStats
	if err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalOrders,
		&stats.PendingOrders,
		&stats.PaidOrders,
		&stats.ShippedOrders,
		&stats.DeliveredOrders,
		&stats.CancelledOrders,
		&stats.TotalSales,
	); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("error counting orders: %w", err)
	}

	return &stats, nil
}
