package service_test

import (
	"errors"
	"sync"

	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/internal/repository"
	"github.com/guts-yang/estone-api/internal/service"
)

func (s *IntegrationTestSuite) placeOrderInput(userID int64) service.PlaceOrderInput {
	return service.PlaceOrderInput{
		UserID:          userID,
		PaymentMethod:   domain.PaymentMethodAlipay,
		ShippingAddress: "1 Main Street",
		ShippingPhone:   "555-0100",
	}
}

func (s *IntegrationTestSuite) TestPlaceOrder_Success() {
	user := s.registerUser("checkout_buyer")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 5)

	_, err := s.CartService.AddItem(s.Ctx, user.ID, product.ID, 2)
	s.Require().NoError(err)

	order, err := s.OrderService.PlaceOrder(s.Ctx, s.placeOrderInput(user.ID))
	s.Require().NoError(err)

	s.Require().Equal(domain.OrderStatusPending, order.Status)
	s.Require().False(order.PaymentStatus)
	s.Require().Equal(int64(20000), order.TotalAmount)
	s.Require().Len(order.Items, 1)
	s.Require().Equal("A Great Chaos Vinyl", order.Items[0].ProductName)
	s.Require().Equal(int64(20000), order.Items[0].TotalPrice)

	stock, soldCount, _ := s.productStock(product.ID)
	s.Require().Equal(int64(3), stock)
	s.Require().Equal(int64(2), soldCount)

	cart, err := s.CartService.GetCart(s.Ctx, user.ID)
	s.Require().NoError(err)
	s.Require().Empty(cart.Items)
	s.Require().Zero(cart.TotalAmount)

	var eventCount int
	err = s.DbPool.QueryRow(
		s.Ctx,
		`SELECT COUNT(*) FROM outbox WHERE event_type = 'OrderCreated' AND aggregate_type = 'order'`,
	).Scan(&eventCount)
	s.Require().NoError(err)
	s.Require().Equal(1, eventCount)
}

func (s *IntegrationTestSuite) TestPlaceOrder_InsufficientStockLeavesEverythingIntact() {
	user := s.registerUser("unlucky_buyer")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 2)

	_, err := s.CartService.AddItem(s.Ctx, user.ID, product.ID, 2)
	s.Require().NoError(err)

	// Stock drops below the cart quantity before checkout.
	_, err = s.DbPool.Exec(s.Ctx, `UPDATE products SET stock = 1 WHERE id = $1`, product.ID)
	s.Require().NoError(err)

	_, err = s.OrderService.PlaceOrder(s.Ctx, s.placeOrderInput(user.ID))
	s.Require().ErrorIs(err, repository.ErrInsufficientStock)

	stock, soldCount, _ := s.productStock(product.ID)
	s.Require().Equal(int64(1), stock)
	s.Require().Zero(soldCount)

	cart, err := s.CartService.GetCart(s.Ctx, user.ID)
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 1)

	var orderCount int
	err = s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM orders`).Scan(&orderCount)
	s.Require().NoError(err)
	s.Require().Zero(orderCount)
}

func (s *IntegrationTestSuite) TestPlaceOrder_ConcurrentBuyersOneUnit() {
	first := s.registerUser("racing_buyer_one")
	second := s.registerUser("racing_buyer_two")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 1)

	_, err := s.CartService.AddItem(s.Ctx, first.ID, product.ID, 1)
	s.Require().NoError(err)
	_, err = s.CartService.AddItem(s.Ctx, second.ID, product.ID, 1)
	s.Require().NoError(err)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, userID := range []int64{first.ID, second.ID} {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := s.OrderService.PlaceOrder(s.Ctx, s.placeOrderInput(userID))
			results <- err
		}(userID)
	}
	wg.Wait()
	close(results)

	var succeeded, outOfStock int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, repository.ErrInsufficientStock):
			outOfStock++
		default:
			s.Require().NoError(err)
		}
	}
	s.Require().Equal(1, succeeded)
	s.Require().Equal(1, outOfStock)

	stock, soldCount, _ := s.productStock(product.ID)
	s.Require().Zero(stock)
	s.Require().Equal(int64(1), soldCount)

	var orderCount int
	err = s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM orders`).Scan(&orderCount)
	s.Require().NoError(err)
	s.Require().Equal(1, orderCount)
}

func (s *IntegrationTestSuite) TestPlaceOrder_EmptyCart() {
	user := s.registerUser("empty_buyer")

	_, err := s.OrderService.PlaceOrder(s.Ctx, s.placeOrderInput(user.ID))
	s.Require().ErrorIs(err, service.ErrEmptyCart)
}

func (s *IntegrationTestSuite) TestPlaceOrder_InactiveProduct() {
	user := s.registerUser("inactive_buyer")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 5)

	_, err := s.CartService.AddItem(s.Ctx, user.ID, product.ID, 1)
	s.Require().NoError(err)

	_, err = s.DbPool.Exec(s.Ctx, `UPDATE products SET status = 'inactive' WHERE id = $1`, product.ID)
	s.Require().NoError(err)

	_, err = s.OrderService.PlaceOrder(s.Ctx, s.placeOrderInput(user.ID))
	s.Require().ErrorIs(err, service.ErrProductUnavailable)
}

func (s *IntegrationTestSuite) TestPlaceOrder_LastUnitFlipsProductOutOfStock() {
	user := s.registerUser("last_unit_buyer")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 2)

	_, err := s.CartService.AddItem(s.Ctx, user.ID, product.ID, 2)
	s.Require().NoError(err)

	_, err = s.OrderService.PlaceOrder(s.Ctx, s.placeOrderInput(user.ID))
	s.Require().NoError(err)

	stock, _, status := s.productStock(product.ID)
	s.Require().Zero(stock)
	s.Require().Equal("out_of_stock", status)
}

func (s *IntegrationTestSuite) TestPayOrder() {
	user := s.registerUser("paying_buyer")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 5)

	_, err := s.CartService.AddItem(s.Ctx, user.ID, product.ID, 1)
	s.Require().NoError(err)

	order, err := s.OrderService.PlaceOrder(s.Ctx, s.placeOrderInput(user.ID))
	s.Require().NoError(err)

	paid, err := s.OrderService.PayOrder(s.Ctx, user.ID, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusPaid, paid.Status)
	s.Require().True(paid.PaymentStatus)

	var eventCount int
	err = s.DbPool.QueryRow(
		s.Ctx,
		`SELECT COUNT(*) FROM outbox WHERE event_type = 'OrderPaid'`,
	).Scan(&eventCount)
	s.Require().NoError(err)
	s.Require().Equal(1, eventCount)

	// Paying twice is rejected.
	_, err = s.OrderService.PayOrder(s.Ctx, user.ID, order.ID)
	s.Require().ErrorIs(err, service.ErrInvalidState)
}

func (s *IntegrationTestSuite) TestPayOrder_NotOwner() {
	owner := s.registerUser("order_owner")
	intruder := s.registerUser("order_intruder")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 5)

	_, err := s.CartService.AddItem(s.Ctx, owner.ID, product.ID, 1)
	s.Require().NoError(err)

	order, err := s.OrderService.PlaceOrder(s.Ctx, s.placeOrderInput(owner.ID))
	s.Require().NoError(err)

	_, err = s.OrderService.PayOrder(s.Ctx, intruder.ID, order.ID)
	s.Require().ErrorIs(err, service.ErrForbidden)
}

func (s *IntegrationTestSuite) TestCancelOrder_RestoresStock() {
	user := s.registerUser("cancelling_buyer")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 5)

	_, err := s.CartService.AddItem(s.Ctx, user.ID, product.ID, 2)
	s.Require().NoError(err)

	order, err := s.OrderService.PlaceOrder(s.Ctx, s.placeOrderInput(user.ID))
	s.Require().NoError(err)

	stock, _, _ := s.productStock(product.ID)
	s.Require().Equal(int64(3), stock)

	cancelled, err := s.OrderService.CancelOrder(s.Ctx, user.ID, false, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusCancelled, cancelled.Status)

	stock, soldCount, _ := s.productStock(product.ID)
	s.Require().Equal(int64(5), stock)
	s.Require().Zero(soldCount)

	// A cancelled order cannot be cancelled again.
	_, err = s.OrderService.CancelOrder(s.Ctx, user.ID, false, order.ID)
	s.Require().ErrorIs(err, service.ErrInvalidState)
}

func (s *IntegrationTestSuite) TestCancelOrder_ProductDeletedAfterPurchase() {
	user := s.registerUser("orphaned_buyer")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 5)

	_, err := s.CartService.AddItem(s.Ctx, user.ID, product.ID, 2)
	s.Require().NoError(err)

	order, err := s.OrderService.PlaceOrder(s.Ctx, s.placeOrderInput(user.ID))
	s.Require().NoError(err)

	err = s.ProductService.Delete(s.Ctx, product.ID)
	s.Require().NoError(err)

	// The soft deleted product must not strand the order in pending.
	cancelled, err := s.OrderService.CancelOrder(s.Ctx, user.ID, false, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusCancelled, cancelled.Status)

	stock, soldCount, status := s.productStock(product.ID)
	s.Require().Equal(int64(5), stock)
	s.Require().Zero(soldCount)
	s.Require().Equal("inactive", status)
}

func (s *IntegrationTestSuite) TestUpdateStatus_FollowsLifecycle() {
	user := s.registerUser("lifecycle_buyer")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 5)

	_, err := s.CartService.AddItem(s.Ctx, user.ID, product.ID, 1)
	s.Require().NoError(err)

	order, err := s.OrderService.PlaceOrder(s.Ctx, s.placeOrderInput(user.ID))
	s.Require().NoError(err)

	// Shipping an unpaid order is not a legal move.
	_, err = s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.OrderStatusShipped)
	s.Require().ErrorIs(err, service.ErrInvalidState)

	paid, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.OrderStatusPaid)
	s.Require().NoError(err)
	s.Require().True(paid.PaymentStatus)

	shipped, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.OrderStatusShipped)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusShipped, shipped.Status)

	delivered, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.OrderStatusDelivered)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusDelivered, delivered.Status)

	_, err = s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.OrderStatusCancelled)
	s.Require().ErrorIs(err, service.ErrInvalidState)
}

func (s *IntegrationTestSuite) TestListOrdersAndStats() {
	user := s.registerUser("listing_buyer")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 10)

	for i := 0; i < 2; i++ {
		_, err := s.CartService.AddItem(s.Ctx, user.ID, product.ID, 1)
		s.Require().NoError(err)

		_, err = s.OrderService.PlaceOrder(s.Ctx, s.placeOrderInput(user.ID))
		s.Require().NoError(err)
	}

	orders, total, err := s.OrderService.ListOrders(s.Ctx, domain.OrderFilter{UserID: user.ID, Limit: 10})
	s.Require().NoError(err)
	s.Require().Equal(int64(2), total)
	s.Require().Len(orders, 2)

	first := orders[0]
	_, err = s.OrderService.PayOrder(s.Ctx, user.ID, first.ID)
	s.Require().NoError(err)

	stats, err := s.OrderService.Stats(s.Ctx)
	s.Require().NoError(err)
	s.Require().Equal(int64(2), stats.TotalOrders)
	s.Require().Equal(int64(1), stats.PendingOrders)
	s.Require().Equal(int64(1), stats.PaidOrders)
	s.Require().Equal(int64(10000), stats.TotalSales)
}
