package order

import (
	"fmt"
	"time"
)

// Product is a single order line
type Product struct {
	ProductID string `json:"productID"`
	Quantity  int    `json:"quantity"`
}

// Order is the canonical order record mirrored from the shop panel.
//
// Optional string fields are pointers so that an absent value and an empty
// value stay distinguishable across a store round trip. Products has no such
// distinction: a nil list and an empty list are the same order.
type Order struct {
	OrderID       string    `json:"orderID"`
	Products      []Product `json:"products"`
	OrderWorth    float64   `json:"orderWorth"`
	CustomerName  *string   `json:"customerName,omitempty"`
	CustomerEmail *string   `json:"customerEmail,omitempty"`
	Status        *string   `json:"status,omitempty"`
	Date          time.Time `json:"date"`
}

// Validate checks the record invariants
func (o Order) Validate() error {
	if o.OrderID == "" {
		return ErrInvalidOrderID
	}
	if o.OrderWorth < 0 {
		return fmt.Errorf("%w: %s has %v", ErrInvalidWorth, o.OrderID, o.OrderWorth)
	}
	for _, p := range o.Products {
		if p.ProductID == "" {
			return fmt.Errorf("%w: order %s", ErrInvalidProductID, o.OrderID)
		}
		if p.Quantity <= 0 {
			return fmt.Errorf("%w: order %s product %s", ErrInvalidQuantity, o.OrderID, p.ProductID)
		}
	}
	return nil
}

// Stamp returns a copy of the order with Date set to now, truncated to
// millisecond precision in UTC.
func (o Order) Stamp(now time.Time) Order {
	o.Date = now.UTC().Truncate(time.Millisecond)
	return o
}

// HasProduct reports whether the order contains productID
func (o Order) HasProduct(productID string) bool {
	for _, p := range o.Products {
		if p.ProductID == productID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate stored state
func (o Order) Clone() Order {
	c := o
	if o.Products != nil {
		c.Products = make([]Product, len(o.Products))
		copy(c.Products, o.Products)
	}
	c.CustomerName = cloneString(o.CustomerName)
	c.CustomerEmail = cloneString(o.CustomerEmail)
	c.Status = cloneString(o.Status)
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr is a helper for building optional fields
func StringPtr(s string) *string {
	return &s
}

// UpdateResult counts how a fetched batch was classified during a merge.
// Added + Updated + Unchanged equals the number of records merged. Records
// rejected by Validate are counted in Skipped and never reach the store.
type UpdateResult struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped,omitempty"`
}

// Total returns the number of records classified, excluding skipped ones
func (r UpdateResult) Total() int {
	return r.Added + r.Updated + r.Unchanged
}
