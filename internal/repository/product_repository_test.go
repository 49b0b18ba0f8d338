package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tienda-api/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	repo := NewProductRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(name string, priceCents int, stock int) bool {
			ctx := context.Background()

			product := &domain.Product{
				ID: uuid.New(),
				// Suffix keeps generated names unique across runs.
				Name:      name + " " + uuid.New().String(),
				Price:     decimal.New(int64(priceCents), -2),
				Stock:     stock,
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			}

			if err := repo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			retrieved, err := repo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.ID != product.ID {
				t.Logf("FAIL: ID mismatch. Expected %s, got %s", product.ID, retrieved.ID)
				return false
			}

			if retrieved.Name != product.Name {
				t.Logf("FAIL: Name mismatch. Expected %s, got %s", product.Name, retrieved.Name)
				return false
			}

			if !retrieved.Price.Equal(product.Price) {
				t.Logf("FAIL: Price mismatch. Expected %s, got %s", product.Price, retrieved.Price)
				return false
			}

			if retrieved.Stock != product.Stock {
				t.Logf("FAIL: Stock mismatch. Expected %d, got %d", product.Stock, retrieved.Stock)
				return false
			}

			if retrieved.CreatedAt.IsZero() || retrieved.UpdatedAt.IsZero() {
				t.Logf("FAIL: timestamps not set")
				return false
			}

			// Cleanup
			_ = repo.Delete(ctx, product.ID)

			return true
		},
		gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`), // name
		gen.IntRange(1, 999999),              // price in cents
		gen.IntRange(0, 1000),                // stock (non-negative)
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductRepository_CreateDuplicateName(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	product := createTestProduct(t, "99.99", 5)

	dup := &domain.Product{
		ID:        uuid.New(),
		Name:      product.Name,
		Price:     decimal.RequireFromString("10.00"),
		Stock:     1,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	err := repo.Create(ctx, dup)

	assert.ErrorIs(t, err, ErrProductNameTaken)
}

func TestProductRepository_Update(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	product := createTestProduct(t, "99.99", 5)

	product.Name = "Renamed " + uuid.New().String()
	product.Price = decimal.RequireFromString("150.25")
	product.Stock = 42
	product.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, product))

	retrieved, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.Name, retrieved.Name)
	assert.True(t, retrieved.Price.Equal(decimal.RequireFromString("150.25")))
	assert.Equal(t, 42, retrieved.Stock)
}

func TestProductRepository_UpdateNotFound(t *testing.T) {
	repo := NewProductRepository(testDB)

	missing := &domain.Product{
		ID:        uuid.New(),
		Name:      "Ghost " + uuid.New().String(),
		Price:     decimal.RequireFromString("1.00"),
		UpdatedAt: time.Now().UTC(),
	}

	err := repo.Update(context.Background(), missing)

	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductRepository_Delete(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	product := createTestProduct(t, "20.00", 3)

	require.NoError(t, repo.Delete(ctx, product.ID))

	_, err := repo.FindByID(ctx, product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, product.ID), ErrProductNotFound)
}

func TestProductRepository_Search(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	marker := uuid.New().String()[:8]
	for i := 0; i < 3; i++ {
		product := &domain.Product{
			ID:        uuid.New(),
			Name:      fmt.Sprintf("Yerba %s %d", marker, i),
			Price:     decimal.RequireFromString("500.00"),
			Stock:     10,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		require.NoError(t, repo.Create(ctx, product))
	}

	results, total, err := repo.Search(ctx, marker, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, results, 3)
	for _, p := range results {
		assert.Contains(t, p.Name, marker)
	}
}
