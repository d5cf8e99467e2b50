package order

import (
	"fmt"
	"sort"
)

// Filter selects orders. Nil bounds and an empty ProductID match everything.
// Worth bounds are inclusive.
type Filter struct {
	MinWorth  *float64
	MaxWorth  *float64
	ProductID string
}

// Matches reports whether o satisfies every set criterion
func (f Filter) Matches(o Order) bool {
	if f.MinWorth != nil && o.OrderWorth < *f.MinWorth {
		return false
	}
	if f.MaxWorth != nil && o.OrderWorth > *f.MaxWorth {
		return false
	}
	if f.ProductID != "" && !o.HasProduct(f.ProductID) {
		return false
	}
	return true
}

// SortField names a sortable order attribute
type SortField string

const (
	SortByOrderID SortField = "orderID"
	SortByWorth   SortField = "orderWorth"
	SortByDate    SortField = "date"
)

// ParseSortField validates a client-supplied sort field. An empty value maps to SortByOrderID.
func ParseSortField(s string) (SortField, error) {
	switch SortField(s) {
	case "", SortByOrderID:
		return SortByOrderID, nil
	case SortByWorth:
		return SortByWorth, nil
	case SortByDate:
		return SortByDate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSortField, s)
	}
}

// Sort orders in place. Ties fall back to OrderID so output is deterministic.
func Sort(orders []Order, field SortField, desc bool) {
	less := func(a, b Order) bool {
		switch field {
		case SortByWorth:
			if a.OrderWorth != b.OrderWorth {
				return a.OrderWorth < b.OrderWorth
			}
		case SortByDate:
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
		}
		return a.OrderID < b.OrderID
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if desc {
			return less(orders[j], orders[i])
		}
		return less(orders[i], orders[j])
	})
}

// Summary aggregates a set of orders
type Summary struct {
	Count         int     `json:"count"`
	TotalProducts int     `json:"totalProducts"`
	TotalWorth    float64 `json:"totalWorth"`
}

// Summarize counts orders, product lines and total worth
func Summarize(orders []Order) Summary {
	s := Summary{Count: len(orders)}
	for _, o := range orders {
		s.TotalProducts += len(o.Products)
		s.TotalWorth += o.OrderWorth
	}
	return s
}
