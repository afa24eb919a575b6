package model

import "github.com/shopspring/decimal"

// Sale is an immutable record of a registered sale together with its line
// items. Total always equals the sum of Quantity*UnitPrice over Items.
type Sale struct {
	ID    uint64          `json:"id"`    // sales.id
	Date  Date            `json:"date"`  // sales.date
	Total decimal.Decimal `json:"total"` // sales.total
	Items []SaleItem      `json:"items"`
}

// SaleItem is one line of a Sale. UnitPrice is captured when the sale is
// registered and does not follow later catalog price changes.
type SaleItem struct {
	ID        uint64          `json:"id"`        // sale_items.id
	SaleID    uint64          `json:"saleId"`    // sale_items.sale_id
	ProductID uint64          `json:"productId"` // sale_items.product_id
	Quantity  int             `json:"quantity"`  // sale_items.quantity
	UnitPrice decimal.Decimal `json:"unitPrice"` // sale_items.unit_price
	Product   *Product        `json:"product,omitempty"`
}

// LineTotal returns Quantity * UnitPrice.
func (i SaleItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
