package notification

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/internal/service"
	"github.com/guts-yang/estone-api/pkg/applog"
	"github.com/guts-yang/estone-api/pkg/kafka"
)

type Consumer struct {
	service *Service
	logger  *zap.Logger
}

func NewConsumer(svc *Service, logger *zap.Logger) *Consumer {
	return &Consumer{
		service: svc,
		logger:  logger,
	}
}

func (c *Consumer) Start(ctx context.Context, brokers []string, topic string) {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		"notification-group",
		[]string{topic},
		c.processMessage,
		c.logger,
	)

	consumerGroup.Run(ctx)
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	applog.Info(
		ctx,
		c.logger,
		"Processing message",
		zap.String("topic", msg.Topic),
	)

	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		applog.Error(ctx, c.logger, "Error unmarshalling event envelope", zap.Error(err))
		return err
	}

	switch envelope.EventType {
	case service.EventOrderPaid:
		var event OrderPaidEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			applog.Error(ctx, c.logger, "Error parsing order paid event", zap.Error(err))
			return nil
		}

		if err := c.service.HandleOrderPaid(ctx, event); err != nil {
			applog.Error(ctx, c.logger, "Error processing order paid event", zap.Error(err))
			return err
		}
	case service.EventOrderCreated:
		// Placement itself needs no notification yet.
	default:
		applog.Debug(ctx, c.logger, "Ignored event type", zap.String("event_type", envelope.EventType))
	}

	return nil
}
