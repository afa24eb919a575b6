// Package queue carries sale notifications over RabbitMQ: the payload
// types, a publisher used after a sale commits, and a consumer that
// appends each sale to a log file.
package queue

import (
	"time"

	"github.com/iliyamo/product-sales-api/internal/model"
)

// SaleRegisteredQueue is the durable queue sale events are routed to.
const SaleRegisteredQueue = "sale.registered"

// SaleRegisteredEvent is published once a sale has been committed. Money
// values are fixed two-decimal strings so consumers need no decimal type.
type SaleRegisteredEvent struct {
	SaleID       uint64          `json:"sale_id"`
	Date         string          `json:"date"`
	Total        string          `json:"total"`
	Items        []SaleEventItem `json:"items"`
	RegisteredAt string          `json:"registered_at"`
}

// SaleEventItem is one line of a SaleRegisteredEvent.
type SaleEventItem struct {
	ProductID   uint64 `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// NewSaleRegisteredEvent builds the event for sale.
func NewSaleRegisteredEvent(sale model.Sale, at time.Time) SaleRegisteredEvent {
	ev := SaleRegisteredEvent{
		SaleID:       sale.ID,
		Date:         sale.Date.String(),
		Total:        sale.Total.StringFixed(2),
		Items:        make([]SaleEventItem, 0, len(sale.Items)),
		RegisteredAt: at.UTC().Format(time.RFC3339),
	}
	for _, it := range sale.Items {
		item := SaleEventItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
		}
		if it.Product != nil {
			item.ProductName = it.Product.Name
		}
		ev.Items = append(ev.Items, item)
	}
	return ev
}
