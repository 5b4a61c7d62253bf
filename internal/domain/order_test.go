package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusPaid, OrderStatusShipped, true},
		{OrderStatusPaid, OrderStatusCancelled, false},
		{OrderStatusPaid, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusShipped, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusPaid, false},
	}

	for _, tc := range cases {
		got := tc.from.CanTransitionTo(tc.to)
		require.Equal(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderStatusIsTerminal(t *testing.T) {
	require.True(t, OrderStatusDelivered.IsTerminal())
	require.True(t, OrderStatusCancelled.IsTerminal())
	require.False(t, OrderStatusPending.IsTerminal())
	require.False(t, OrderStatusPaid.IsTerminal())
	require.False(t, OrderStatusShipped.IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	status, ok := ParseOrderStatus("paid")
	require.True(t, ok)
	require.Equal(t, OrderStatusPaid, status)

	_, ok = ParseOrderStatus("refunded")
	require.False(t, ok)
}

func TestNewOrderNumber(t *testing.T) {
	number := NewOrderNumber()

	require.True(t, strings.HasPrefix(number, "EST-"))

	parts := strings.Split(number, "-")
	require.Len(t, parts, 3)
	require.Len(t, parts[2], 8)

	// Two numbers generated back to back must differ.
	require.NotEqual(t, number, NewOrderNumber())
}
