package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guts-yang/estone-api/internal/domain"
)

// cachedProductService caches single product reads in Redis and drops
// the cached entry on any write to the same product.
type cachedProductService struct {
	next        ProductService
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewCachedProductService(next ProductService, redisClient *redis.Client) ProductService {
	return &cachedProductService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    time.Minute * 10,
	}
}

func productCacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (s *cachedProductService) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	return s.next.Create(ctx, product)
}

func (s *cachedProductService) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	key := productCacheKey(id)

	val, err := s.redisClient.Get(ctx, key).Result()
	if err == nil {
		var product domain.Product
		if err := json.Unmarshal([]byte(val), &product); err == nil {
			return &product, nil
		}
	}

	product, err := s.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		s.redisClient.Set(ctx, key, data, s.cacheTTL)
	}

	return product, nil
}

func (s *cachedProductService) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	return s.next.List(ctx, filter)
}

func (s *cachedProductService) Update(ctx context.Context, id int64, input *domain.UpdateProductInput) (*domain.Product, error) {
	product, err := s.next.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}

	s.redisClient.Del(ctx, productCacheKey(id))

	return product, nil
}

func (s *cachedProductService) Delete(ctx context.Context, id int64) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}

	s.redisClient.Del(ctx, productCacheKey(id))

	return nil
}

func (s *cachedProductService) AddImage(ctx context.Context, image *domain.ProductImage) (*domain.ProductImage, error) {
	created, err := s.next.AddImage(ctx, image)
	if err != nil {
		return nil, err
	}

	s.redisClient.Del(ctx, productCacheKey(image.ProductID))

	return created, nil
}

func (s *cachedProductService) DeleteImage(ctx context.Context, productID, imageID int64) error {
	if err := s.next.DeleteImage(ctx, productID, imageID); err != nil {
		return err
	}

	s.redisClient.Del(ctx, productCacheKey(productID))

	return nil
}

func (s *cachedProductService) SetPrimaryImage(ctx context.Context, productID, imageID int64) error {
	if err := s.next.SetPrimaryImage(ctx, productID, imageID); err != nil {
		return err
	}

	s.redisClient.Del(ctx, productCacheKey(productID))

	return nil
}
