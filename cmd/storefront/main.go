package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/guts-yang/estone-api/internal/notification"
	"github.com/guts-yang/estone-api/internal/notification/email"
	"github.com/guts-yang/estone-api/internal/repository"
	"github.com/guts-yang/estone-api/internal/service"
	transport "github.com/guts-yang/estone-api/internal/transport/http"
	"github.com/guts-yang/estone-api/internal/transport/http/handler"
	"github.com/guts-yang/estone-api/pkg/config"
	"github.com/guts-yang/estone-api/pkg/db"
	"github.com/guts-yang/estone-api/pkg/kafka"
	outbox "github.com/guts-yang/estone-api/pkg/outbox/repository"
	"github.com/guts-yang/estone-api/pkg/outbox/worker"
	"github.com/guts-yang/estone-api/pkg/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	tp, err := tracing.InitTracer(ctx, "storefront")
	if err != nil {
		log.Fatalf("Failed to init tracer: %v", err)
	}

	logger, err := config.NewLogger(config.LoggerConfig{
		Level: cfg.Logger.Level,
		Env:   cfg.Env,
	})
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("Error creating postgres pool: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	logger.Info("storefront started!")

	userRepository := repository.NewUserRepository(pool, logger)
	categoryRepository := repository.NewCategoryRepository(pool, logger)
	productRepository := repository.NewProductRepository(pool, logger)
	cartRepository := repository.NewCartRepository(pool, logger)
	orderRepository := repository.NewOrderRepository(pool, logger)
	outboxRepository := outbox.NewOutboxRepository(pool, logger)

	userService := service.NewUserService(pool, logger, userRepository, cartRepository)
	categoryService := service.NewCategoryService(logger, categoryRepository)
	productService := service.NewCachedProductService(
		service.NewProductService(pool, logger, productRepository),
		rdb,
	)
	cartService := service.NewCartService(pool, logger, cartRepository, productRepository)
	orderService := service.NewOrderService(
		pool,
		logger,
		orderRepository,
		cartRepository,
		productRepository,
		outboxRepository,
		cfg.Kafka.OrdersTopic,
	)

	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("Error creating kafka producer: %v", err)
	}

	outboxProcessor := worker.NewOutboxProcessor(pool, outboxRepository, kafkaProducer, logger)
	go outboxProcessor.Start(ctx)

	emailSender := email.NewSMTPSender(cfg.SMTP, logger)
	notificationService := notification.NewService(emailSender, userRepository, logger, pool)
	notificationConsumer := notification.NewConsumer(notificationService, logger)
	go notificationConsumer.Start(ctx, cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic)

	app := fiber.New()

	app.Use(otelfiber.Middleware())

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Limiter.Max,
		Expiration: cfg.Limiter.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
			})
		},
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("Storefront is alive!")
	})

	handlers := &transport.Handlers{
		Auth:     handler.NewAuthHandler(userService, logger),
		User:     handler.NewUserHandler(userService, logger),
		Category: handler.NewCategoryHandler(categoryService, logger),
		Product:  handler.NewProductHandler(productService, logger),
		Cart:     handler.NewCartHandler(cartService, logger),
		Order:    handler.NewOrderHandler(orderService, logger),
	}

	transport.RegisterRoutes(app, handlers)

	go func() {
		log.Println("HTTP service listening on: " + cfg.HTTP.Port)
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("Error listening on HTTP port %v: %v\n", cfg.HTTP.Port, err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP app: %v\n", err)
	} else {
		log.Println("HTTP app stopped gracefully")
	}

	if err := kafkaProducer.Close(); err != nil {
		log.Printf("Error closing kafka producer: %v\n", err)
	}

	pool.Close()
	log.Println("Closed db pool successfully")

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down telemetry: %v\n", err)
	} else {
		log.Println("Telemetry stopped correctly")
	}
}
