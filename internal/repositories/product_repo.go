package repositories

import (
	"context"
	"errors"

	"katalog/internal/models"
)

// ErrProductNotFound is returned when no product exists for a given ID.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	// Insert assigns a new ID to product and persists it.
	Insert(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uint) (*models.Product, error)
	// FindAllDescendingByID returns every product, newest first.
	FindAllDescendingByID(ctx context.Context) ([]models.Product, error)
	// Save persists all attributes of an existing product.
	Save(ctx context.Context, product *models.Product) error
	Remove(ctx context.Context, product *models.Product) error
}
