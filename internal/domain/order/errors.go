package order

import "errors"

var (
	ErrOrderNotFound    = errors.New("order: not found")
	ErrInvalidOrderID   = errors.New("order: order id is required")
	ErrInvalidWorth     = errors.New("order: worth must be non-negative")
	ErrInvalidQuantity  = errors.New("order: product quantity must be positive")
	ErrInvalidProductID = errors.New("order: product id is required")
	ErrInvalidSortField = errors.New("order: unsupported sort field")
)
