package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEffectivePrice(t *testing.T) {
	p := Product{Price: 10000}
	require.Equal(t, int64(10000), p.EffectivePrice())

	discount := int64(7500)
	p.DiscountPrice = &discount
	require.Equal(t, int64(7500), p.EffectivePrice())
}

func TestNormalizeStatus(t *testing.T) {
	p := Product{Stock: 0, Status: ProductStatusActive}
	p.NormalizeStatus()
	require.Equal(t, ProductStatusOutOfStock, p.Status)

	p = Product{Stock: 3, Status: ProductStatusOutOfStock}
	p.NormalizeStatus()
	require.Equal(t, ProductStatusActive, p.Status)

	// An explicitly deactivated product stays inactive regardless of stock.
	p = Product{Stock: 5, Status: ProductStatusInactive}
	p.NormalizeStatus()
	require.Equal(t, ProductStatusInactive, p.Status)
}
