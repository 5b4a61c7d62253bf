package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCartItemSubtotal(t *testing.T) {
	item := CartItem{Quantity: 3, Price: 2500}
	require.Equal(t, int64(7500), item.Subtotal())
}

func TestRecalculateTotal(t *testing.T) {
	cart := Cart{
		Items: []CartItem{
			{Quantity: 2, Price: 10000},
			{Quantity: 1, Price: 999},
		},
	}

	cart.RecalculateTotal()
	require.Equal(t, int64(20999), cart.TotalAmount)

	cart.Items = nil
	cart.RecalculateTotal()
	require.Zero(t, cart.TotalAmount)
}
