package domain

import "time"

type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "active"
	ProductStatusInactive   ProductStatus = "inactive"
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
)

// Product prices are stored in minor currency units (cents).
type Product struct {
	ID            int64          `db:"id" json:"id"`
	CategoryID    int64          `db:"category_id" json:"category_id"`
	Name          string         `db:"name" json:"name"`
	Description   string         `db:"description" json:"description"`
	Price         int64          `db:"price" json:"price"`
	DiscountPrice *int64         `db:"discount_price" json:"discount_price"`
	Stock         int64          `db:"stock" json:"stock"`
	Status        ProductStatus  `db:"status" json:"status"`
	ViewCount     int64          `db:"view_count" json:"view_count"`
	SoldCount     int64          `db:"sold_count" json:"sold_count"`
	Images        []ProductImage `db:"-" json:"images,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// EffectivePrice is the price a buyer actually pays: the discount price
// when one is set, the list price otherwise.
func (p *Product) EffectivePrice() int64 {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// NormalizeStatus keeps the stock/status invariant: a product is
// out_of_stock exactly when its stock is zero. Called at every point
// that mutates stock, replacing the persistence hooks of the old model.
func (p *Product) NormalizeStatus() {
	if p.Stock == 0 && p.Status != ProductStatusOutOfStock {
		p.Status = ProductStatusOutOfStock
	} else if p.Stock > 0 && p.Status == ProductStatusOutOfStock {
		p.Status = ProductStatusActive
	}
}

type ProductImage struct {
	ID        int64  `db:"id" json:"id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	URL       string `db:"url" json:"url"`
	IsPrimary bool   `db:"is_primary" json:"is_primary"`
	SortOrder int32  `db:"sort_order" json:"sort_order"`
}

type UpdateProductInput struct {
	CategoryID    *int64  `json:"category_id"`
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	Price         *int64  `json:"price"`
	DiscountPrice *int64  `json:"discount_price"`
	Stock         *int64  `json:"stock"`
	Status        *string `json:"status"`
}

type ProductFilter struct {
	Search     string
	CategoryID int64
	Limit      int64
	Offset     int64
}
