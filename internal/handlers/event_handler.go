package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"katalog/internal/models"
)

// NewProductEventLogger returns a RabbitMQ message handler that decodes
// product events and writes them to the audit log.
func NewProductEventLogger(log *zap.Logger) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var ev models.ProductEvent
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			return fmt.Errorf("failed to decode product event: %w", err)
		}
		if ev.Type == "" {
			ev.Type = msg.Type
		}
		log.Info("Product event",
			zap.String("type", ev.Type),
			zap.Uint("product_id", ev.ProductID),
			zap.Time("occurred_at", ev.OccurredAt),
		)
		return nil
	}
}
