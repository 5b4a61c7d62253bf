package service_test

import (
	"os"
	"testing"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/internal/repository"
	"github.com/guts-yang/estone-api/internal/service"
	outboxRepository "github.com/guts-yang/estone-api/pkg/outbox/repository"
	"github.com/guts-yang/estone-api/pkg/testsuite"
)

const testOrdersTopic = "order_events"

type IntegrationTestSuite struct {
	testsuite.BaseSuite

	UserService    service.UserService
	ProductService service.ProductService
	CartService    service.CartService
	OrderService   service.OrderService
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.Require().NoError(os.Setenv("JWT_SECRET", "integration-test-secret"))
	s.BaseSuite.SetupInfrastructure("../../migrations", false)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	s.BaseSuite.TearDownInfrastructure()
}

func (s *IntegrationTestSuite) SetupTest() {
	s.BaseSuite.TruncateTable("users")
	s.BaseSuite.TruncateTable("categories")
	s.BaseSuite.TruncateTable("products")
	s.BaseSuite.TruncateTable("carts")
	s.BaseSuite.TruncateTable("orders")
	s.BaseSuite.TruncateTable("outbox")
	s.BaseSuite.TruncateTable("processed_events")

	logger := zap.NewNop()

	userRepo := repository.NewUserRepository(s.DbPool, logger)
	productRepo := repository.NewProductRepository(s.DbPool, logger)
	cartRepo := repository.NewCartRepository(s.DbPool, logger)
	orderRepo := repository.NewOrderRepository(s.DbPool, logger)
	outboxRepo := outboxRepository.NewOutboxRepository(s.DbPool, logger)

	s.UserService = service.NewUserService(s.DbPool, logger, userRepo, cartRepo)
	s.ProductService = service.NewProductService(s.DbPool, logger, productRepo)
	s.CartService = service.NewCartService(s.DbPool, logger, cartRepo, productRepo)
	s.OrderService = service.NewOrderService(
		s.DbPool,
		logger,
		orderRepo,
		cartRepo,
		productRepo,
		outboxRepo,
		testOrdersTopic,
	)
}

func (s *IntegrationTestSuite) registerUser(username string) *domain.User {
	user, token, err := s.UserService.Register(s.Ctx, service.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(token)

	return user
}

func (s *IntegrationTestSuite) seedCategory() int64 {
	var id int64
	err := s.DbPool.QueryRow(
		s.Ctx,
		`INSERT INTO categories (name) VALUES ('Vinyl') RETURNING id`,
	).Scan(&id)
	s.Require().NoError(err)

	return id
}

func (s *IntegrationTestSuite) seedProduct(categoryID, price, stock int64) *domain.Product {
	product := &domain.Product{
		CategoryID:  categoryID,
		Name:        "A Great Chaos Vinyl",
		Description: "Best album vinyl",
		Price:       price,
		Stock:       stock,
		Status:      domain.ProductStatusActive,
	}

	created, err := s.ProductService.Create(s.Ctx, product)
	s.Require().NoError(err)

	return created
}

func (s *IntegrationTestSuite) productStock(productID int64) (stock, soldCount int64, status string) {
	err := s.DbPool.QueryRow(
		s.Ctx,
		`SELECT stock, sold_count, status FROM products WHERE id = $1`,
		productID,
	).Scan(&stock, &soldCount, &status)
	s.Require().NoError(err)

	return stock, soldCount, status
}

func TestIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	suite.Run(t, new(IntegrationTestSuite))
}
