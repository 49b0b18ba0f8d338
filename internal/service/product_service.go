package service

import (
	"context"
	"fmt"
	"time"

	"tienda-api/internal/domain"
	"tienda-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductService defines the interface for catalog business logic. Stock
// values set here are initial inventory; reservations happen in the order
// service.
type ProductService interface {
	Create(ctx context.Context, name string, price decimal.Decimal, stock int) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, name string, price decimal.Decimal, stock int) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, search string, page, pageSize int) ([]*domain.Product, int, error)
}

type productService struct {
	products repository.ProductRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(products repository.ProductRepository) ProductService {
	return &productService{products: products}
}

func (s *productService) Create(ctx context.Context, name string, price decimal.Decimal, stock int) (*domain.Product, error) {
	now := time.Now().UTC()
	product := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     price,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, name string, price decimal.Decimal, stock int) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = name
	product.Price = price
	product.Stock = stock
	product.UpdatedAt = time.Now().UTC()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.products.Delete(ctx, id)
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *productService) List(ctx context.Context, search string, page, pageSize int) ([]*domain.Product, int, error) {
	if search != "" {
		return s.products.Search(ctx, search, page, pageSize)
	}
	return s.products.List(ctx, page, pageSize)
}
