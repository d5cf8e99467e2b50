package idosell

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/order"
)

// SkipReason explains why a raw record produced no order
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipNotObject
	SkipMissingOrderID
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipNotObject:
		return "not_object"
	case SkipMissingOrderID:
		return "missing_order_id"
	default:
		return "unknown"
	}
}

// Result is the outcome of normalizing one raw record. Order is only
// meaningful when Skip is SkipNone.
type Result struct {
	Order order.Order
	Skip  SkipReason
	// DroppedProducts counts line items discarded for a missing id or quantity
	DroppedProducts int
}

// OK reports whether the record produced an order
func (r Result) OK() bool {
	return r.Skip == SkipNone
}

// Field paths tried in order. The first path that resolves to a usable value wins.
var (
	orderIDPaths = [][]string{
		{"id"},
		{"orderId"},
		{"orderID"},
		{"order_id"},
		{"orderSerialNumber"},
	}
	productListPaths = [][]string{
		{"orderDetails", "productsResults"},
		{"products"},
	}
	productIDKeys       = []string{"productId", "id", "productID", "product_id"}
	productQuantityKeys = []string{"productQuantity", "quantity"}
	directWorthPaths    = [][]string{
		{"worth"},
		{"orderWorth"},
	}
	nestedWorthPaths = [][]string{
		{"orderDetails", "payments", "orderCurrency", "orderProductsCost"},
		{"sum"},
	}
	statusPaths = [][]string{
		{"status"},
		{"orderStatus"},
		{"orderDetails", "orderStatus"},
	}
	customerNamePaths = [][]string{
		{"customer", "name"},
		{"customerName"},
	}
	customerEmailPaths = [][]string{
		{"customer", "email"},
		{"customerEmail"},
	}
)

// Normalize converts one raw search result into a canonical order
func Normalize(raw any) Result {
	rec, ok := raw.(map[string]any)
	if !ok {
		return Result{Skip: SkipNotObject}
	}

	id, ok := firstString(rec, orderIDPaths)
	if !ok {
		return Result{Skip: SkipMissingOrderID}
	}

	products, dropped := normalizeProducts(rec)
	o := order.Order{
		OrderID:       id,
		Products:      products,
		OrderWorth:    normalizeWorth(rec),
		CustomerName:  optionalString(rec, customerNamePaths),
		CustomerEmail: optionalString(rec, customerEmailPaths),
		Status:        optionalString(rec, statusPaths),
	}
	return Result{Order: o, DroppedProducts: dropped}
}

func normalizeProducts(rec map[string]any) ([]order.Product, int) {
	products := []order.Product{}
	dropped := 0
	for _, path := range productListPaths {
		list, ok := lookup(rec, path).([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			line, ok := item.(map[string]any)
			if !ok {
				dropped++
				continue
			}
			pid, ok := firstKeyString(line, productIDKeys)
			if !ok {
				dropped++
				continue
			}
			qty, ok := firstKeyQuantity(line, productQuantityKeys)
			if !ok {
				dropped++
				continue
			}
			products = append(products, order.Product{ProductID: pid, Quantity: qty})
		}
		return products, dropped
	}
	return products, dropped
}

// normalizeWorth prefers the record's own total, then the payment breakdown.
// Unresolvable or negative amounts yield 0.
func normalizeWorth(rec map[string]any) float64 {
	for _, paths := range [][][]string{directWorthPaths, nestedWorthPaths} {
		for _, path := range paths {
			d, ok := asDecimal(lookup(rec, path))
			if !ok || d.IsNegative() {
				continue
			}
			f, _ := d.Round(2).Float64()
			return f
		}
	}
	return 0
}

func lookup(rec map[string]any, path []string) any {
	var cur any = rec
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[key]
		if !ok {
			return nil
		}
	}
	return cur
}

func firstString(rec map[string]any, paths [][]string) (string, bool) {
	for _, path := range paths {
		if s, ok := asString(lookup(rec, path)); ok {
			return s, true
		}
	}
	return "", false
}

func optionalString(rec map[string]any, paths [][]string) *string {
	if s, ok := firstString(rec, paths); ok {
		return &s
	}
	return nil
}

func firstKeyString(m map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		if s, ok := asString(m[k]); ok {
			return s, true
		}
	}
	return "", false
}

func firstKeyQuantity(m map[string]any, keys []string) (int, bool) {
	for _, k := range keys {
		d, ok := asDecimal(m[k])
		if !ok {
			continue
		}
		if !d.IsInteger() || !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
			return 0, false
		}
		return int(d.IntPart()), true
	}
	return 0, false
}

// asString accepts non-blank strings and numbers. Numbers keep their
// literal form so identifiers like 100234 are not rendered as floats.
func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}

// asDecimal parses monetary and quantity values, which the API sends either
// as JSON numbers or as numeric strings.
func asDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	default:
		return decimal.Zero, false
	}
}
