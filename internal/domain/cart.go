package domain

import "time"

// Cart is the per-user purchase intent. TotalAmount is a cached sum that
// must equal the sum of item price times quantity after every mutation.
type Cart struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	TotalAmount int64      `db:"total_amount" json:"total_amount"`
	Items       []CartItem `db:"-" json:"items"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// CartItem.Price is a snapshot of the product's effective price taken
// when the item was added. It is never re-derived from the product.
type CartItem struct {
	ID        int64  `db:"id" json:"id"`
	CartID    int64  `db:"cart_id" json:"cart_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Quantity  int32  `db:"quantity" json:"quantity"`
	Price     int64  `db:"price" json:"price"`

	// Live product state, joined in on reads for stock validation and display.
	ProductName   string        `db:"product_name" json:"product_name,omitempty"`
	ProductStock  int64         `db:"product_stock" json:"-"`
	ProductStatus ProductStatus `db:"product_status" json:"-"`
}

func (i *CartItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// RecalculateTotal rebuilds the cached total from the line items.
func (c *Cart) RecalculateTotal() {
	var total int64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	c.TotalAmount = total
}
