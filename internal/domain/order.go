package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the payment status of an order
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
)

// SplitItem is one bounded sub-payment produced by dividing a total amount
type SplitItem struct {
	ID      string `json:"id"`
	Value   int64  `json:"value"`
	LinkURL string `json:"linkUrl,omitempty"` // External payment URL
	IsPaid  bool   `json:"isPaid"`
}

// Order is a persisted batch of split items plus their payment and execution status
type Order struct {
	ID                    string            `json:"id"`
	TotalAmount           int64             `json:"totalAmount"`
	Status                OrderStatus       `json:"status"`
	CreatedAt             time.Time         `json:"createdAt"`
	UpdatedAt             time.Time         `json:"updatedAt"`
	Links                 []SplitItem       `json:"links"`
	ExtractedRecords      []ExtractedRecord `json:"extractedRecords,omitempty"`
	ExecutionTotals       *CurrencyTotals   `json:"executionTotals,omitempty"` // Frozen once IsExecutionRegistered
	IsExecutionRegistered bool              `json:"isExecutionRegistered"`
}

// NewID returns a new opaque identifier for orders and split items
func NewID() string {
	return uuid.NewString()
}

// NewSplitItems wraps allocated values into unpaid split items with fresh ids
func NewSplitItems(values []int64) []SplitItem {
	items := make([]SplitItem, 0, len(values))
	for _, v := range values {
		items = append(items, SplitItem{
			ID:    NewID(),
			Value: v,
		})
	}
	return items
}

// RefreshStatus derives Status from the items: paid only when every item is paid
func (o *Order) RefreshStatus() {
	if len(o.Links) == 0 {
		o.Status = OrderStatusPending
		return
	}

	for _, item := range o.Links {
		if !item.IsPaid {
			o.Status = OrderStatusPending
			return
		}
	}
	o.Status = OrderStatusPaid
}

// FindItem returns the index of the split item with the given id, or -1
func (o *Order) FindItem(itemID string) int {
	for i := range o.Links {
		if o.Links[i].ID == itemID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so that pending writes never share slices with callers
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}

	c := *o
	c.Links = append([]SplitItem(nil), o.Links...)
	if o.ExtractedRecords != nil {
		c.ExtractedRecords = append([]ExtractedRecord(nil), o.ExtractedRecords...)
	}
	if o.ExecutionTotals != nil {
		totals := o.ExecutionTotals.Clone()
		c.ExecutionTotals = &totals
	}
	return &c
}

// Validate ensures the order adheres to domain rules
// Returns an error if validation fails
func (o *Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return errors.New("order id cannot be empty")
	}

	if o.TotalAmount <= 0 {
		return errors.New("order total amount must be positive")
	}

	if len(o.Links) == 0 {
		return errors.New("order must have at least one split item")
	}

	seen := make(map[string]bool, len(o.Links))
	for _, item := range o.Links {
		if item.ID == "" {
			return errors.New("split item id cannot be empty")
		}
		if seen[item.ID] {
			return errors.New("split item ids must be unique within an order")
		}
		seen[item.ID] = true

		if item.Value <= 0 {
			return errors.New("split item value must be positive")
		}
	}

	if o.Status != OrderStatusPending && o.Status != OrderStatusPaid {
		return errors.New("order status must be pending or paid")
	}

	// Totals exist exactly when execution is registered
	if o.IsExecutionRegistered != (o.ExecutionTotals != nil) {
		return errors.New("execution totals must be present exactly when execution is registered")
	}

	return nil
}
