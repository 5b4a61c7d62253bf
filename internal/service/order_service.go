package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/internal/repository"
	"github.com/guts-yang/estone-api/pkg/applog"
	outboxdomain "github.com/guts-yang/estone-api/pkg/outbox/domain"
	"github.com/guts-yang/estone-api/pkg/outbox/worker"
)

const (
	EventOrderCreated = "OrderCreated"
	EventOrderPaid    = "OrderPaid"
)

type PlaceOrderInput struct {
	UserID          int64
	PaymentMethod   domain.PaymentMethod
	ShippingAddress string
	ShippingPhone   string
	Notes           *string
}

type OrderEventPayload struct {
	OrderID     int64  `json:"order_id"`
	UserID      int64  `json:"user_id"`
	OrderNumber string `json:"order_number"`
	TotalAmount int64  `json:"total_amount"`
}

type OrderService interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error)
	PayOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error)
	CancelOrder(ctx context.Context, userID int64, isAdmin bool, orderID int64) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error)
	GetOrder(ctx context.Context, userID int64, isAdmin bool, orderID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error)
	Stats(ctx context.Context) (*domain.OrderStats, error)
}

type orderService struct {
	pool        *pgxpool.Pool
	logger      *zap.Logger
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	outboxRepo  worker.OutboxRepository
	ordersTopic string
	tracer      trace.Tracer
}

func NewOrderService(
	pool *pgxpool.Pool,
	logger *zap.Logger,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	outboxRepo worker.OutboxRepository,
	ordersTopic string,
) OrderService {
	return &orderService{
		pool:        pool,
		logger:      logger,
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		outboxRepo:  outboxRepo,
		ordersTopic: ordersTopic,
		tracer:      otel.Tracer("order_service"),
	}
}

// PlaceOrder converts the user's cart into an order inside a single
// transaction. Stock is decremented with a conditional update, so two
// concurrent checkouts can never oversell the same product.
func (s *orderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.PlaceOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", input.UserID),
		attribute.String("payment_method", string(input.PaymentMethod)),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		applog.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))

		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	cart, err := s.cartRepo.GetByUserIDForUpdate(ctx, tx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, ErrEmptyCart
		}

		return nil, err
	}

	items, err := s.cartRepo.GetItemsTx(ctx, tx, cart.ID)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	for _, item := range items {
		if item.ProductStatus != domain.ProductStatusActive {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, item.ProductName)
		}

		if item.ProductStock < int64(item.Quantity) {
			return nil, fmt.Errorf("%w: %s", repository.ErrInsufficientStock, item.ProductName)
		}
	}

	order := &domain.Order{
		UserID:          input.UserID,
		OrderNumber:     domain.NewOrderNumber(),
		TotalAmount:     cart.TotalAmount,
		Status:          domain.OrderStatusPending,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   false,
		ShippingAddress: input.ShippingAddress,
		ShippingPhone:   input.ShippingPhone,
		Notes:           input.Notes,
	}

	for _, item := range items {
		productID := item.ProductID
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:   &productID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			TotalPrice:  item.Subtotal(),
		})
	}

	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, err
	}

	for _, item := range items {
		if err := s.productRepo.DecreaseStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return nil, fmt.Errorf("%w: %s", err, item.ProductName)
			}

			return nil, err
		}
	}

	if err := s.cartRepo.DeleteAllItems(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if _, err := s.cartRepo.SyncTotal(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if err := s.saveOrderEvent(ctx, tx, EventOrderCreated, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		applog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	applog.Info(ctx, s.logger, "Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total_amount", order.TotalAmount),
	)

	return order, nil
}

func (s *orderService) PayOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.PayOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("order_id", orderID),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if order.UserID != userID {
		return nil, ErrForbidden
	}

	if order.Status != domain.OrderStatusPending {
		return nil, fmt.Errorf("%w: cannot pay order in status %s", ErrInvalidState, order.Status)
	}

	if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, domain.OrderStatusPaid, true); err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusPaid
	order.PaymentStatus = true

	if err := s.saveOrderEvent(ctx, tx, EventOrderPaid, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	applog.Info(ctx, s.logger, "Order paid",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
	)

	return order, nil
}

func (s *orderService) CancelOrder(ctx context.Context, userID int64, isAdmin bool, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CancelOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("order_id", orderID),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && order.UserID != userID {
		return nil, ErrForbidden
	}

	if order.Status != domain.OrderStatusPending {
		return nil, fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidState, order.Status)
	}

	if err := s.restoreOrderStock(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, domain.OrderStatusCancelled, order.PaymentStatus); err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusCancelled

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	applog.Info(ctx, s.logger, "Order cancelled",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
	)

	return order, nil
}

// UpdateStatus is the admin lifecycle operation. Transitions are
// restricted to the forward chain plus cancellation of pending orders.
func (s *orderService) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(status)),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidState, order.Status, status)
	}

	paymentStatus := order.PaymentStatus
	if status == domain.OrderStatusPaid {
		paymentStatus = true
	}

	if status == domain.OrderStatusCancelled {
		if err := s.restoreOrderStock(ctx, tx, order); err != nil {
			return nil, err
		}
	}

	if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, status, paymentStatus); err != nil {
		return nil, err
	}

	previous := order.Status
	order.Status = status
	order.PaymentStatus = paymentStatus

	if status == domain.OrderStatusPaid {
		if err := s.saveOrderEvent(ctx, tx, EventOrderPaid, order); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	applog.Info(ctx, s.logger, "Order status updated",
		zap.Int64("order_id", order.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
	)

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, userID int64, isAdmin bool, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && order.UserID != userID {
		return nil, ErrForbidden
	}

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", filter.UserID),
	)

	return s.orderRepo.List(ctx, filter)
}

func (s *orderService) Stats(ctx context.Context) (*domain.OrderStats, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Stats")
	defer span.End()

	return s.orderRepo.Stats(ctx)
}

func (s *orderService) restoreOrderStock(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	for _, item := range order.Items {
		if item.ProductID == nil {
			continue
		}

		if err := s.productRepo.RestoreStock(ctx, tx, *item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	return nil
}

func (s *orderService) saveOrderEvent(ctx context.Context, tx pgx.Tx, eventType string, order *domain.Order) error {
	payload, err := json.Marshal(OrderEventPayload{
		OrderID:     order.ID,
		UserID:      order.UserID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	event := &outboxdomain.OutboxEvent{
		AggregateType: "order",
		AggregateID:   fmt.Sprintf("%d", order.ID),
		EventType:     eventType,
		Payload:       payload,
		Topic:         s.ordersTopic,
	}

	return s.outboxRepo.SaveOutboxEvent(ctx, tx, event)
}

func (s *orderService) rollback(ctx context.Context, tx pgx.Tx) {
	shutdownCtx := context.WithoutCancel(ctx)

	if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		applog.Warn(shutdownCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
	}
}
