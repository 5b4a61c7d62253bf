package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/pkg/applog"
	"github.com/guts-yang/estone-api/pkg/config"
)

type Sender interface {
	SendOrderPaidEmail(ctx context.Context, to, orderNumber string, totalAmount int64) error
}

type smtpSender struct {
	from     string
	password string
	host     string
	port     string
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewSMTPSender(cfg config.SMTP, logger *zap.Logger) Sender {
	return &smtpSender{
		from:     cfg.User,
		password: cfg.Password,
		host:     cfg.Host,
		port:     cfg.Port,
		logger:   logger,
		tracer:   otel.Tracer("notification/email"),
	}
}

func (s *smtpSender) SendOrderPaidEmail(ctx context.Context, to, orderNumber string, totalAmount int64) error {
	ctx, span := s.tracer.Start(ctx, "smtp.SendOrderPaidEmail")
	defer span.End()

	span.SetAttributes(
		attribute.String("to.email", to),
		attribute.String("order_number", orderNumber),
	)

	subject := "Subject: We received your payment.\n"
	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	body := fmt.Sprintf(`
		<h1>Thank you for your purchase! 🎉</h1>
		<p>Payment for order <b>%s</b> was confirmed.</p>
		<p>Total: %d.%02d</p>
		<p>We will notify you once the order ships.</p>
	`, orderNumber, totalAmount/100, totalAmount%100)

	msg := []byte(subject + mime + body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	auth := smtp.PlainAuth("", s.from, s.password, s.host)

	applog.Info(
		ctx,
		s.logger,
		"Sending order paid email",
		zap.String("to", to),
		zap.String("order_number", orderNumber),
	)

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, msg); err != nil {
		span.RecordError(err)
		applog.Error(
			ctx,
			s.logger,
			"Error sending order paid email",
			zap.String("to", to),
			zap.Error(err),
		)

		return fmt.Errorf("failed to send mail: %w", err)
	}

	applog.Info(ctx, s.logger, "Order paid email sent successfully", zap.String("to", to))
	return nil
}
