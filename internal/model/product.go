package model

import "github.com/shopspring/decimal"

// Product is a row of the `products` table.
type Product struct {
	ID       uint64          `json:"id"`       // products.id
	Name     string          `json:"name"`     // products.name
	Price    decimal.Decimal `json:"price"`    // products.price DECIMAL(18,2)
	Stock    int             `json:"stock"`    // products.stock, never negative
	ImageURL string          `json:"imageUrl"` // products.image_url
}
