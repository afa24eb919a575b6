package service

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/product-sales-api/internal/model"
	"github.com/iliyamo/product-sales-api/internal/repository"
)

// ReservedLine is a sale line resolved against the catalog.
type ReservedLine struct {
	Product   *model.Product
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Reservation is the outcome of a successful InventoryLedger.Reserve.
type Reservation struct {
	Lines []ReservedLine
	Total decimal.Decimal
	// Touched holds each decremented product once, ordered by id, ready to
	// be handed to ProductCatalog.PersistStockChanges.
	Touched []*model.Product
}

// InventoryLedger checks that a list of sale lines can be served from stock
// and computes the stock left afterwards. It never commits anything: the
// decremented products are returned for the caller to persist in its own
// unit of work.
type InventoryLedger struct{}

// Reserve resolves every distinct product in one lookup, failing with an
// InvalidReference error before touching stock if any id is unknown. Lines
// are then applied in order against shared product copies, so two lines for
// the same product add up. The first line that exceeds the remaining stock
// aborts the whole reservation with InsufficientStock.
func (InventoryLedger) Reserve(ctx context.Context, catalog repository.ProductCatalog, lines []SaleLineInput) (*Reservation, error) {
	ids := distinctProductIDs(lines)
	found, err := catalog.FindByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, internal("load products", err)
	}
	byID := make(map[uint64]*model.Product, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	var missing []uint64
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, invalidReference(missing)
	}

	res := &Reservation{Lines: make([]ReservedLine, 0, len(lines)), Total: decimal.Zero}
	for _, line := range lines {
		p := byID[line.ProductID]
		if line.Quantity > p.Stock {
			return nil, insufficientStock(p.Name)
		}
		p.Stock -= line.Quantity
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		res.Lines = append(res.Lines, ReservedLine{
			Product:   p,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: lineTotal,
		})
		res.Total = res.Total.Add(lineTotal)
	}
	for _, id := range ids {
		res.Touched = append(res.Touched, byID[id])
	}
	return res, nil
}

func distinctProductIDs(lines []SaleLineInput) []uint64 {
	seen := make(map[uint64]struct{}, len(lines))
	ids := make([]uint64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
