package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

// orderTransitions is the legal transition table. The old storefront let
// an administrator set any status from any other; transitions outside
// this table are now rejected.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped},
	OrderStatusShipped: {OrderStatusDelivered},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

type PaymentMethod string

const (
	PaymentMethodAlipay         PaymentMethod = "alipay"
	PaymentMethodWechatPay      PaymentMethod = "wechat_pay"
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// Order is immutable after creation except for status, payment status
// and tracking number. TotalAmount is frozen from the cart at checkout.
type Order struct {
	ID              int64         `db:"id" json:"id"`
	OrderNumber     string        `db:"order_number" json:"order_number"`
	UserID          int64         `db:"user_id" json:"user_id"`
	TotalAmount     int64         `db:"total_amount" json:"total_amount"`
	Status          OrderStatus   `db:"status" json:"status"`
	PaymentMethod   PaymentMethod `db:"payment_method" json:"payment_method"`
	PaymentStatus   bool          `db:"payment_status" json:"payment_status"`
	ShippingAddress string        `db:"shipping_address" json:"shipping_address"`
	ShippingPhone   string        `db:"shipping_phone" json:"shipping_phone"`
	TrackingNumber  *string       `db:"tracking_number" json:"tracking_number"`
	Notes           *string       `db:"notes" json:"notes"`
	Items           []OrderItem   `db:"-" json:"items"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// OrderItem denormalizes the product name and price at order time so the
// snapshot survives later product edits or deletion.
type OrderItem struct {
	ID          int64  `db:"id" json:"id"`
	OrderID     int64  `db:"order_id" json:"order_id"`
	ProductID   *int64 `db:"product_id" json:"product_id"`
	ProductName string `db:"product_name" json:"product_name"`
	Quantity    int32  `db:"quantity" json:"quantity"`
	Price       int64  `db:"price" json:"price"`
	TotalPrice  int64  `db:"total_price" json:"total_price"`
}

// NewOrderNumber builds a human-readable order number. The uuid fragment
// replaces the 0-999 random suffix the old storefront used, which could
// collide under concurrent checkouts.
func NewOrderNumber() string {
	return fmt.Sprintf("EST-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

type OrderStats struct {
	TotalOrders     int64 `json:"total_orders"`
	PendingOrders   int64 `json:"pending_orders"`
	PaidOrders      int64 `json:"paid_orders"`
	ShippedOrders   int64 `json:"shipped_orders"`
	DeliveredOrders int64 `json:"delivered_orders"`
	CancelledOrders int64 `json:"cancelled_orders"`
	TotalSales      int64 `json:"total_sales"`
}

type OrderFilter struct {
	UserID int64 // 0 means all users (admin listing)
	Status OrderStatus
	Limit  int64
	Offset int64
}
