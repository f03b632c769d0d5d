package service

import (
	"context"

	"products-backend/internal/domain"
	"products-backend/internal/repository"

	"go.uber.org/zap"
)

// ProductService defines the product use cases exposed over HTTP
type ProductService interface {
	FindAll(ctx context.Context) ([]*domain.Product, error)
	FindOne(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, input domain.Attributes) (*domain.Product, error)
	Update(ctx context.Context, id int64, patch domain.Attributes) (*domain.Product, error)
	Remove(ctx context.Context, id int64) error
}

type productService struct {
	productRepo repository.ProductRepository
	logger      *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository, logger *zap.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger,
	}
}

// FindAll returns every stored product
func (s *productService) FindAll(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.List(ctx)
}

// FindOne returns domain.ErrProductNotFound when id does not exist
func (s *productService) FindOne(ctx context.Context, id int64) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

func (s *productService) Create(ctx context.Context, input domain.Attributes) (*domain.Product, error) {
	product, err := s.productRepo.Insert(ctx, input)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Product created", zap.Int64("product_id", product.ID))
	return product, nil
}

// Update overwrites the fields present in patch and leaves the rest untouched
func (s *productService) Update(ctx context.Context, id int64, patch domain.Attributes) (*domain.Product, error) {
	if _, err := s.productRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}

	product, err := s.productRepo.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Product updated", zap.Int64("product_id", id), zap.Int("fields", len(patch)))
	return product, nil
}

func (s *productService) Remove(ctx context.Context, id int64) error {
	if _, err := s.productRepo.FindByID(ctx, id); err != nil {
		return err
	}

	if err := s.productRepo.DeleteByID(ctx, id); err != nil {
		return err
	}

	s.logger.Debug("Product removed", zap.Int64("product_id", id))
	return nil
}
