package domain

import "errors"

var (
	// ErrInvalidInput is returned when a split is requested with a non-positive total or bound,
	// or when an item value would become non-positive
	ErrInvalidInput = errors.New("invalid input")

	// ErrAllocationUnresolvable is returned when no set of distinct parts could be produced
	ErrAllocationUnresolvable = errors.New("allocation unresolvable")

	// ErrOrderNotFound is returned when an order id is unknown
	ErrOrderNotFound = errors.New("order not found")

	// ErrItemNotFound is returned when a split item id is unknown within its order
	ErrItemNotFound = errors.New("split item not found")

	// ErrExecutionRegistered is returned for edits attempted after execution totals were frozen
	ErrExecutionRegistered = errors.New("execution already registered")
)
