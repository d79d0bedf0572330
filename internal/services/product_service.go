package services

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/pkg/imagehost"
)

// EventPublisher publishes product lifecycle events.
type EventPublisher interface {
	PublishEvent(routingKey string, payload interface{}) error
}

// ProductInput carries the fields of a create or update request.
// Price is the decimal text as submitted; a nil Image means no new image.
type ProductInput struct {
	Name        string
	Description string
	Price       string
	Image       *imagehost.Blob
}

func (in ProductInput) trimmed() ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Price = strings.TrimSpace(in.Price)
	return in
}

// price returns the validated price at the stored scale.
func (in ProductInput) price() decimal.Decimal {
	return decimal.RequireFromString(in.Price).Round(models.PriceScale)
}

// ProductService handles business logic related to products.
// Concurrent writes to the same product are last-write-wins.
type ProductService struct {
	repo      repositories.ProductRepository
	images    imagehost.Resolver
	publisher EventPublisher
	validate  *validator.Validate
	log       *zap.Logger
}

// Option configures a ProductService.
type Option func(*ProductService)

// WithPublisher makes the service publish product events after each committed write.
func WithPublisher(p EventPublisher) Option {
	return func(s *ProductService) { s.publisher = p }
}

// WithLogger sets the service logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *ProductService) { s.log = log }
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, images imagehost.Resolver, opts ...Option) *ProductService {
	s := &ProductService{
		repo:     repo,
		images:   images,
		validate: newValidator(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List retrieves all products, newest first.
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.FindAllDescendingByID(ctx)
	if err != nil {
		return nil, cancelled(err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID.
func (s *ProductService) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, cancelled(err)
	}
	return p, nil
}

// Create validates in, resolves its image and persists a new product.
// Nothing is persisted when validation or the image upload fails.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	in = in.trimmed()
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	imageURL, err := s.images.Resolve(ctx, in.Image)
	if err != nil {
		return nil, cancelled(err)
	}

	product := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.price(),
	}
	if imageURL != "" {
		product.ImageURL = &imageURL
	}

	if err := s.repo.Insert(ctx, product); err != nil {
		return nil, cancelled(err)
	}

	s.publish(models.EventProductCreated, *product)
	return product, nil
}

// Update overwrites name, description and price of an existing product.
// The image URL is replaced only when in carries a new image.
func (s *ProductService) Update(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, cancelled(err)
	}

	in = in.trimmed()
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	imageURL, err := s.images.Resolve(ctx, in.Image)
	if err != nil {
		return nil, cancelled(err)
	}

	product.Name = in.Name
	product.Description = in.Description
	product.Price = in.price()
	if imageURL != "" {
		product.ImageURL = &imageURL
	}

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, cancelled(err)
	}

	s.publish(models.EventProductUpdated, *product)
	return product, nil
}

// Delete removes a product. It reports false, with no error, when there was
// nothing to delete.
func (s *ProductService) Delete(ctx context.Context, id uint) (bool, error) {
	product, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrProductNotFound) {
		return false, nil
	}
	if err != nil {
		return false, cancelled(err)
	}

	if err := s.repo.Remove(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return false, nil
		}
		return false, cancelled(err)
	}

	s.publish(models.EventProductDeleted, *product)
	return true, nil
}

func (s *ProductService) publish(eventType string, p models.Product) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(eventType, models.NewProductEvent(eventType, p)); err != nil {
		s.log.Warn("Failed to publish product event",
			zap.String("type", eventType),
			zap.Uint("product_id", p.ID),
			zap.Error(err),
		)
	}
}
