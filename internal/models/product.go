package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceScale is the number of decimal places a price carries.
const PriceScale = 2

// Product represents a product in the catalog.
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string          `json:"name" gorm:"type:varchar(40);not null"`
	Description string          `json:"description" gorm:"type:varchar(200);not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(18,2);not null"`
	ImageURL    *string         `json:"imageUrl,omitempty" gorm:"column:image_url"`
}

// AfterFind normalizes the price read from the store to PriceScale places,
// so a loaded product compares equal to the one that was written.
func (p *Product) AfterFind(*gorm.DB) error {
	p.Price = p.Price.Round(PriceScale)
	return nil
}

// ProductResponse is the wire shape of a product.
type ProductResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    *string `json:"imageUrl,omitempty"`
}

// ToResponse maps a product to its wire shape.
func (p Product) ToResponse() ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		ImageURL:    p.ImageURL,
	}
}

// ToResponses maps a slice of products to their wire shape.
func ToResponses(products []Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = p.ToResponse()
	}
	return out
}

// Product lifecycle event types.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// ProductEvent is published after a product write has been committed.
type ProductEvent struct {
	Type       string           `json:"type"`
	ProductID  uint             `json:"productId"`
	Product    *ProductResponse `json:"product,omitempty"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// NewProductEvent builds an event for p. The product body is omitted for deletions.
func NewProductEvent(eventType string, p Product) ProductEvent {
	ev := ProductEvent{
		Type:       eventType,
		ProductID:  p.ID,
		OccurredAt: time.Now().UTC(),
	}
	if eventType != EventProductDeleted {
		resp := p.ToResponse()
		ev.Product = &resp
	}
	return ev
}
