package idosell

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/order"
)

// decode parses JSON the same way the client does, keeping numbers as json.Number
func decode(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(s))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestNormalize_OrderID(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		wantID string
		skip   SkipReason
	}{
		{"id string", `{"id":"A1"}`, "A1", SkipNone},
		{"id number keeps literal", `{"id":100234}`, "100234", SkipNone},
		{"orderId", `{"orderId":"shop-7"}`, "shop-7", SkipNone},
		{"orderID", `{"orderID":"X"}`, "X", SkipNone},
		{"order_id", `{"order_id":"snake"}`, "snake", SkipNone},
		{"serial number", `{"orderSerialNumber":55}`, "55", SkipNone},
		{"id wins over orderId", `{"id":"first","orderId":"second"}`, "first", SkipNone},
		{"blank id falls through", `{"id":"  ","orderId":"next"}`, "next", SkipNone},
		{"missing id", `{"worth":10}`, "", SkipMissingOrderID},
		{"id of wrong type", `{"id":{"nested":1}}`, "", SkipMissingOrderID},
		{"not an object", `["id"]`, "", SkipNotObject},
		{"null record", `null`, "", SkipNotObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(decode(t, tt.raw))
			assert.Equal(t, tt.skip, res.Skip)
			if tt.skip == SkipNone {
				assert.True(t, res.OK())
				assert.Equal(t, tt.wantID, res.Order.OrderID)
			}
		})
	}
}

func TestNormalize_Worth(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"worth number", `{"id":"1","worth":120.5}`, 120.5},
		{"orderWorth", `{"id":"1","orderWorth":99}`, 99},
		{"payments cost string", `{"id":"1","orderDetails":{"payments":{"orderCurrency":{"orderProductsCost":"45.90"}}}}`, 45.9},
		{"payments cost number", `{"id":"1","orderDetails":{"payments":{"orderCurrency":{"orderProductsCost":12}}}}`, 12},
		{"comma decimal", `{"id":"1","sum":"10,25"}`, 10.25},
		{"direct wins over nested", `{"id":"1","worth":5,"orderDetails":{"payments":{"orderCurrency":{"orderProductsCost":"9"}}}}`, 5},
		{"rounded to cents", `{"id":"1","worth":"10.005"}`, 10.01},
		{"negative ignored", `{"id":"1","worth":-3,"orderWorth":7}`, 7},
		{"unparseable", `{"id":"1","worth":"abc"}`, 0},
		{"absent", `{"id":"1"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(decode(t, tt.raw))
			require.True(t, res.OK())
			assert.InDelta(t, tt.want, res.Order.OrderWorth, 1e-9)
		})
	}
}

func TestNormalize_Products(t *testing.T) {
	raw := `{
		"id": "1",
		"orderDetails": {
			"productsResults": [
				{"productId": 11, "productQuantity": 2},
				{"id": "12", "quantity": "3"},
				{"productQuantity": 1},
				{"productId": "13"},
				{"productId": "14", "productQuantity": 0},
				{"productId": "15", "productQuantity": 1.5},
				"garbage"
			]
		}
	}`

	res := Normalize(decode(t, raw))
	require.True(t, res.OK())
	assert.Equal(t, []order.Product{
		{ProductID: "11", Quantity: 2},
		{ProductID: "12", Quantity: 3},
	}, res.Order.Products)
	assert.Equal(t, 5, res.DroppedProducts)
}

func TestNormalize_TopLevelProducts(t *testing.T) {
	res := Normalize(decode(t, `{"id":"1","products":[{"product_id":"p","quantity":4}]}`))
	require.True(t, res.OK())
	assert.Equal(t, []order.Product{{ProductID: "p", Quantity: 4}}, res.Order.Products)
}

func TestNormalize_NoProductsIsEmptyNotNil(t *testing.T) {
	res := Normalize(decode(t, `{"id":"1"}`))
	require.True(t, res.OK())
	assert.NotNil(t, res.Order.Products)
	assert.Empty(t, res.Order.Products)
}

func TestNormalize_OptionalFields(t *testing.T) {
	t.Run("nested customer and status", func(t *testing.T) {
		res := Normalize(decode(t, `{"id":"1","status":"new","customer":{"name":"Jan","email":"jan@example.com"}}`))
		require.True(t, res.OK())
		require.NotNil(t, res.Order.CustomerName)
		assert.Equal(t, "Jan", *res.Order.CustomerName)
		assert.Equal(t, "jan@example.com", *res.Order.CustomerEmail)
		assert.Equal(t, "new", *res.Order.Status)
	})

	t.Run("flat fallbacks", func(t *testing.T) {
		res := Normalize(decode(t, `{"id":"1","orderStatus":"ready","customerName":"Ola","customerEmail":"o@example.com"}`))
		require.True(t, res.OK())
		assert.Equal(t, "Ola", *res.Order.CustomerName)
		assert.Equal(t, "o@example.com", *res.Order.CustomerEmail)
		assert.Equal(t, "ready", *res.Order.Status)
	})

	t.Run("status under details", func(t *testing.T) {
		res := Normalize(decode(t, `{"id":"1","orderDetails":{"orderStatus":"finished"}}`))
		require.True(t, res.OK())
		assert.Equal(t, "finished", *res.Order.Status)
	})

	t.Run("absent fields stay nil", func(t *testing.T) {
		res := Normalize(decode(t, `{"id":"1","customer":{}}`))
		require.True(t, res.OK())
		assert.Nil(t, res.Order.CustomerName)
		assert.Nil(t, res.Order.CustomerEmail)
		assert.Nil(t, res.Order.Status)
	})
}

func TestSkipReason_String(t *testing.T) {
	assert.Equal(t, "none", SkipNone.String())
	assert.Equal(t, "not_object", SkipNotObject.String())
	assert.Equal(t, "missing_order_id", SkipMissingOrderID.String())
	assert.Equal(t, "unknown", SkipReason(99).String())
}
