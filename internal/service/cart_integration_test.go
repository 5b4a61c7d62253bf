package service_test

import (
	"github.com/guts-yang/estone-api/internal/repository"
)

func (s *IntegrationTestSuite) TestAddItem_SnapshotsPriceAndSyncsTotal() {
	user := s.registerUser("cart_buyer")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 5)

	discount := int64(9000)
	_, err := s.DbPool.Exec(
		s.Ctx,
		`UPDATE products SET discount_price = $1 WHERE id = $2`,
		discount, product.ID,
	)
	s.Require().NoError(err)

	cart, err := s.CartService.AddItem(s.Ctx, user.ID, product.ID, 2)
	s.Require().NoError(err)

	s.Require().Len(cart.Items, 1)
	s.Require().Equal(int64(9000), cart.Items[0].Price)
	s.Require().Equal(int32(2), cart.Items[0].Quantity)
	s.Require().Equal(int64(18000), cart.TotalAmount)
}

func (s *IntegrationTestSuite) TestAddItem_MergesExistingLine() {
	user := s.registerUser("merge_buyer")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 5)

	_, err := s.CartService.AddItem(s.Ctx, user.ID, product.ID, 2)
	s.Require().NoError(err)

	cart, err := s.CartService.AddItem(s.Ctx, user.ID, product.ID, 2)
	s.Require().NoError(err)

	s.Require().Len(cart.Items, 1)
	s.Require().Equal(int32(4), cart.Items[0].Quantity)
	s.Require().Equal(int64(40000), cart.TotalAmount)

	// The merged quantity may never exceed the live stock.
	_, err = s.CartService.AddItem(s.Ctx, user.ID, product.ID, 2)
	s.Require().ErrorIs(err, repository.ErrInsufficientStock)
}

func (s *IntegrationTestSuite) TestUpdateItemQuantity_Overwrites() {
	user := s.registerUser("update_buyer")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 5000, 10)

	cart, err := s.CartService.AddItem(s.Ctx, user.ID, product.ID, 2)
	s.Require().NoError(err)

	cart, err = s.CartService.UpdateItemQuantity(s.Ctx, user.ID, cart.Items[0].ID, 7)
	s.Require().NoError(err)

	s.Require().Equal(int32(7), cart.Items[0].Quantity)
	s.Require().Equal(int64(35000), cart.TotalAmount)

	_, err = s.CartService.UpdateItemQuantity(s.Ctx, user.ID, cart.Items[0].ID, 11)
	s.Require().ErrorIs(err, repository.ErrInsufficientStock)
}

func (s *IntegrationTestSuite) TestRemoveItem() {
	user := s.registerUser("remove_buyer")
	categoryID := s.seedCategory()
	first := s.seedProduct(categoryID, 5000, 10)

	cart, err := s.CartService.AddItem(s.Ctx, user.ID, first.ID, 2)
	s.Require().NoError(err)

	cart, err = s.CartService.RemoveItem(s.Ctx, user.ID, cart.Items[0].ID)
	s.Require().NoError(err)

	s.Require().Empty(cart.Items)
	s.Require().Zero(cart.TotalAmount)

	_, err = s.CartService.RemoveItem(s.Ctx, user.ID, 999999)
	s.Require().ErrorIs(err, repository.ErrCartItemNotFound)
}

func (s *IntegrationTestSuite) TestClearCart() {
	user := s.registerUser("clear_buyer")
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 5000, 10)

	_, err := s.CartService.AddItem(s.Ctx, user.ID, product.ID, 3)
	s.Require().NoError(err)

	cart, err := s.CartService.Clear(s.Ctx, user.ID)
	s.Require().NoError(err)

	s.Require().Empty(cart.Items)
	s.Require().Zero(cart.TotalAmount)
}
