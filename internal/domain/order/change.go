package order

// HasChanged reports whether incoming differs from existing in any tracked
// field. The last-modified date and the customer e-mail are not tracked.
//
// Worth and optional strings compare by value, and a field present on one
// side only counts as a difference. Products compare as a productID to
// quantity map, so line order is irrelevant; when a productID repeats, its
// last line in the existing order wins.
func HasChanged(existing, incoming Order) bool {
	if existing.OrderWorth != incoming.OrderWorth {
		return true
	}
	if !equalOptional(existing.CustomerName, incoming.CustomerName) {
		return true
	}
	if !equalOptional(existing.Status, incoming.Status) {
		return true
	}
	return productsChanged(existing.Products, incoming.Products)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func productsChanged(existing, incoming []Product) bool {
	if len(existing) != len(incoming) {
		return true
	}
	quantities := make(map[string]int, len(existing))
	for _, p := range existing {
		quantities[p.ProductID] = p.Quantity
	}
	for _, p := range incoming {
		q, ok := quantities[p.ProductID]
		if !ok || q != p.Quantity {
			return true
		}
	}
	return false
}
