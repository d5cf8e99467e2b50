package order

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		order   Order
		wantErr error
	}{
		{"valid", Order{OrderID: "1", OrderWorth: 0, Products: []Product{{ProductID: "p", Quantity: 1}}}, nil},
		{"missing id", Order{OrderWorth: 1}, ErrInvalidOrderID},
		{"negative worth", Order{OrderID: "1", OrderWorth: -0.01}, ErrInvalidWorth},
		{"zero quantity", Order{OrderID: "1", Products: []Product{{ProductID: "p"}}}, ErrInvalidQuantity},
		{"blank product", Order{OrderID: "1", Products: []Product{{Quantity: 1}}}, ErrInvalidProductID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), err)
		})
	}
}

func TestOrder_Stamp(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2026, 3, 1, 12, 0, 0, 123456789, loc)

	o := Order{OrderID: "1"}.Stamp(now)

	assert.Equal(t, time.UTC, o.Date.Location())
	assert.Equal(t, 11, o.Date.Hour())
	assert.Equal(t, 123000000, o.Date.Nanosecond())
}

func TestOrder_Clone(t *testing.T) {
	o := baseOrder()
	c := o.Clone()

	c.Products[0].Quantity = 99
	*c.CustomerName = "changed"

	assert.Equal(t, 2, o.Products[0].Quantity)
	assert.Equal(t, "Jan Kowalski", *o.CustomerName)

	var empty Order
	require.Nil(t, empty.Clone().Products)
}

func TestOrder_HasProduct(t *testing.T) {
	o := baseOrder()
	assert.True(t, o.HasProduct("B"))
	assert.False(t, o.HasProduct("Z"))
}

func TestUpdateResult_Total(t *testing.T) {
	assert.Equal(t, 6, UpdateResult{Added: 1, Updated: 2, Unchanged: 3}.Total())
	assert.Equal(t, 6, UpdateResult{Added: 1, Updated: 2, Unchanged: 3, Skipped: 4}.Total())
}
