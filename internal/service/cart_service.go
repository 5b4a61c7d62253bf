package service

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
	"github.com/guts-yang/estone-api/internal/repository"
	"github.com/guts-yang/estone-api/pkg/applog"
)

type CartService interface {
	GetCart(ctx context.Context, userID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int32) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID int64, quantity int32) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID int64) (*domain.Cart, error)
	Clear(ctx context.Context, userID int64) (*domain.Cart, error)
}

type cartService struct {
	pool        *pgxpool.Pool
	logger      *zap.Logger
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	tracer      trace.Tracer
}

func NewCartService(
	pool *pgxpool.Pool,
	logger *zap.Logger,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
) CartService {
	return &cartService{
		pool:        pool,
		logger:      logger,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		tracer:      otel.Tracer("cart_service"),
	}
}

func (s *cartService) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.GetCart")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	cart, err := s.cartRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.cartRepo.GetItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, userID, productID int64, quantity int32) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.AddItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("product_id", productID),
		attribute.Int("quantity", int(quantity)),
	)

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if product.Stock < int64(quantity) {
		return nil, repository.ErrInsufficientStock
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		applog.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))

		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	cart, err := s.cartRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrCartNotFound) {
			return nil, err
		}

		// Registration creates the cart, but an absent one is recreated
		// lazily rather than rejected.
		cart, err = s.cartRepo.Create(ctx, tx, userID)
		if err != nil {
			return nil, err
		}
	}

	existing, err := s.cartRepo.FindItemByProduct(ctx, tx, cart.ID, productID)
	switch {
	case err == nil:
		merged := existing.Quantity + quantity
		if int64(merged) > product.Stock {
			return nil, repository.ErrInsufficientStock
		}

		if err := s.cartRepo.UpdateItemQuantity(ctx, tx, existing.ID, merged); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrCartItemNotFound):
		item := &domain.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
			Price:     product.EffectivePrice(),
		}
		if err := s.cartRepo.InsertItem(ctx, tx, item); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if _, err := s.cartRepo.SyncTotal(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		applog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))

		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetCart(ctx, userID)
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, userID, itemID int64, quantity int32) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.UpdateItemQuantity")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("item_id", itemID),
		attribute.Int("quantity", int(quantity)),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	cart, err := s.cartRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.cartRepo.FindItem(ctx, tx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	// Overwrite, not additive.
	if int64(quantity) > product.Stock {
		return nil, repository.ErrInsufficientStock
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, tx, item.ID, quantity); err != nil {
		return nil, err
	}

	if _, err := s.cartRepo.SyncTotal(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetCart(ctx, userID)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID int64) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.RemoveItem")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("item_id", itemID),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	cart, err := s.cartRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.cartRepo.FindItem(ctx, tx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.DeleteItem(ctx, tx, item.ID); err != nil {
		return nil, err
	}

	if _, err := s.cartRepo.SyncTotal(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetCart(ctx, userID)
}

func (s *cartService) Clear(ctx context.Context, userID int64) (*domain.Cart, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.Clear")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	cart, err := s.cartRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.DeleteAllItems(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if _, err := s.cartRepo.SyncTotal(ctx, tx, cart.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetCart(ctx, userID)
}

func (s *cartService) rollback(ctx context.Context, tx pgx.Tx) {
	shutdownCtx := context.WithoutCancel(ctx)

	if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		applog.Warn(shutdownCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
	}
}
