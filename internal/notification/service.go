package notification

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/internal/notification/email"
	"github.com/guts-yang/estone-api/internal/repository"
	"github.com/guts-yang/estone-api/pkg/applog"
	outboxUtils "github.com/guts-yang/estone-api/pkg/outbox/utils"
	"github.com/guts-yang/estone-api/pkg/utils"
)

type OrderPaidEvent struct {
	EventID     int64  `json:"event_id"`
	OrderID     int64  `json:"order_id"`
	UserID      int64  `json:"user_id"`
	OrderNumber string `json:"order_number"`
	TotalAmount int64  `json:"total_amount"`
}

type Service struct {
	emailSender  email.Sender
	userRepo     repository.UserRepository
	logger       *zap.Logger
	pool         *pgxpool.Pool
	emailBreaker *gobreaker.CircuitBreaker
	tracer       trace.Tracer
}

func NewService(
	emailSender email.Sender,
	userRepo repository.UserRepository,
	logger *zap.Logger,
	pool *pgxpool.Pool,
) *Service {
	return &Service{
		emailSender: emailSender,
		userRepo:    userRepo,
		logger:      logger,
		pool:        pool,
		emailBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "smtp",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		tracer: otel.Tracer("notification-service"),
	}
}

func (s *Service) HandleOrderPaid(ctx context.Context, event OrderPaidEvent) error {
	ctx, span := s.tracer.Start(ctx, "NotificationService.HandleOrderPaid")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("event_id", event.EventID),
		attribute.Int64("order_id", event.OrderID),
	)

	user, err := s.userRepo.GetByID(ctx, event.UserID)
	if err != nil {
		applog.Error(
			ctx,
			s.logger,
			"Failed to load user for order paid email",
			zap.Int64("user_id", event.UserID),
			zap.Error(err),
		)

		return err
	}

	err = outboxUtils.ProcessWithDeduplication(ctx, s.pool, s.logger, event.EventID, func() error {
		_, err := utils.ExecuteWithBreaker(s.emailBreaker, func() (struct{}, error) {
			return struct{}{}, s.emailSender.SendOrderPaidEmail(ctx, user.Email, event.OrderNumber, event.TotalAmount)
		})

		return err
	})
	if err != nil {
		// The order is already paid. A lost email is not worth a
		// redelivery loop.
		applog.Error(
			ctx,
			s.logger,
			"Failed to send order paid email",
			zap.Int64("order_id", event.OrderID),
			zap.Error(err),
		)
	}

	return nil
}
