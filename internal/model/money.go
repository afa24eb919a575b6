package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// money renders a decimal as a JSON number with exactly two fractional
// digits, matching the DECIMAL(18,2) columns. Decoding is left to
// decimal.Decimal, which accepts both quoted and bare numbers.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

func (p Product) MarshalJSON() ([]byte, error) {
	type alias Product
	return json.Marshal(struct {
		alias
		Price money `json:"price"`
	}{alias(p), money(p.Price)})
}

func (s Sale) MarshalJSON() ([]byte, error) {
	type alias Sale
	return json.Marshal(struct {
		alias
		Total money `json:"total"`
	}{alias(s), money(s.Total)})
}

func (i SaleItem) MarshalJSON() ([]byte, error) {
	type alias SaleItem
	return json.Marshal(struct {
		alias
		UnitPrice money `json:"unitPrice"`
	}{alias(i), money(i.UnitPrice)})
}
