package service_test

import (
	"github.com/guts-yang/estone-api/internal/domain"
	"github.com/guts-yang/estone-api/internal/repository"
)

func (s *IntegrationTestSuite) TestProductFindByID_CountsViews() {
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 5)

	for i := 0; i < 3; i++ {
		_, err := s.ProductService.FindByID(s.Ctx, product.ID)
		s.Require().NoError(err)
	}

	var viewCount int64
	err := s.DbPool.QueryRow(
		s.Ctx,
		`SELECT view_count FROM products WHERE id = $1`,
		product.ID,
	).Scan(&viewCount)
	s.Require().NoError(err)
	s.Require().Equal(int64(3), viewCount)
}

func (s *IntegrationTestSuite) TestProductUpdate_StockZeroFlipsStatus() {
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 5)

	zero := int64(0)
	updated, err := s.ProductService.Update(s.Ctx, product.ID, &domain.UpdateProductInput{Stock: &zero})
	s.Require().NoError(err)
	s.Require().Equal(domain.ProductStatusOutOfStock, updated.Status)

	restocked := int64(4)
	updated, err = s.ProductService.Update(s.Ctx, product.ID, &domain.UpdateProductInput{Stock: &restocked})
	s.Require().NoError(err)
	s.Require().Equal(domain.ProductStatusActive, updated.Status)
}

func (s *IntegrationTestSuite) TestProductDelete_IsSoft() {
	categoryID := s.seedCategory()
	product := s.seedProduct(categoryID, 10000, 5)

	s.Require().NoError(s.ProductService.Delete(s.Ctx, product.ID))

	_, err := s.ProductService.FindByID(s.Ctx, product.ID)
	s.Require().ErrorIs(err, repository.ErrProductNotFound)

	// The row survives for order history.
	var deletedCount int
	qErr := s.DbPool.QueryRow(
		s.Ctx,
		`SELECT COUNT(*) FROM products WHERE id = $1 AND deleted_at IS NOT NULL`,
		product.ID,
	).Scan(&deletedCount)
	s.Require().NoError(qErr)
	s.Require().Equal(1, deletedCount)
}

func (s *IntegrationTestSuite) TestProductList_SearchAndCategoryFilter() {
	categoryID := s.seedCategory()
	s.seedProduct(categoryID, 10000, 5)

	products, total, err := s.ProductService.List(s.Ctx, domain.ProductFilter{
		Search: "chaos",
		Limit:  10,
	})
	s.Require().NoError(err)
	s.Require().Equal(int64(1), total)
	s.Require().Len(products, 1)

	_, total, err = s.ProductService.List(s.Ctx, domain.ProductFilter{
		Search: "nonexistent",
		Limit:  10,
	})
	s.Require().NoError(err)
	s.Require().Zero(total)

	_, total, err = s.ProductService.List(s.Ctx, domain.ProductFilter{
		CategoryID: categoryID,
		Limit:      10,
	})
	s.Require().NoError(err)
	s.Require().Equal(int64(1), total)
}
