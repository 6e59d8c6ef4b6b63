package domain

import (
	"context"
)

// OrderRepository defines the interface for order persistence operations
type OrderRepository interface {
	// Create persists a new order with its split items
	Create(ctx context.Context, order *Order) error

	// GetByID retrieves an order by its ID
	// Returns an error wrapping ErrOrderNotFound if it does not exist
	GetByID(ctx context.Context, id string) (*Order, error)

	// List retrieves all orders, newest first
	List(ctx context.Context) ([]*Order, error)

	// Update replaces the stored state of an existing order
	Update(ctx context.Context, order *Order) error

	// Delete removes an order
	Delete(ctx context.Context, id string) error

	// DeleteMany removes several orders at once; unknown ids are ignored
	DeleteMany(ctx context.Context, ids []string) error
}

// Image is an uploaded file handed to the extraction service
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Extractor turns an execution report image into execution records
type Extractor interface {
	Extract(ctx context.Context, image Image, prompt string) ([]ExtractedRecord, error)
}
