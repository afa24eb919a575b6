package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/product-sales-api/internal/model"
)

// SaleRepo stores sales and their items. Items reference products; they do
// not own them.
type SaleRepo struct{ db DBTX }

func NewSaleRepo(db DBTX) *SaleRepo { return &SaleRepo{db: db} }

// Insert writes the sale header and all items, filling in the generated
// ids. Call it inside a unit of work: the two statements must commit
// together.
func (r *SaleRepo) Insert(ctx context.Context, s *model.Sale) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO sales (date, total) VALUES (?, ?)", s.Date, s.Total)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	if len(s.Items) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO sale_items (sale_id, product_id, quantity, unit_price) VALUES ")
	args := make([]any, 0, len(s.Items)*4)
	for i := range s.Items {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?)")
		s.Items[i].SaleID = s.ID
		args = append(args, s.ID, s.Items[i].ProductID, s.Items[i].Quantity, s.Items[i].UnitPrice)
	}
	if _, err := r.db.ExecContext(ctx, b.String(), args...); err != nil {
		return err
	}

	// Auto-increment values of one multi-row insert are increasing but not
	// necessarily consecutive, so read them back in insertion order.
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM sale_items WHERE sale_id=? ORDER BY id", s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	i := 0
	for rows.Next() {
		if i >= len(s.Items) {
			break
		}
		if err := rows.Scan(&s.Items[i].ID); err != nil {
			return err
		}
		i++
	}
	return rows.Err()
}

// ListByDateRange returns the sales dated within [start, end] inclusive,
// ordered by date then id, each with its items and the product each item
// refers to. Sales are loaded first and items batch-loaded in a second
// query.
func (r *SaleRepo) ListByDateRange(ctx context.Context, start, end model.Date) ([]model.Sale, error) {
	sales := []model.Sale{}
	if end.Before(start) {
		return sales, nil
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, date, total FROM sales WHERE date BETWEEN ? AND ? ORDER BY date, id", start, end)
	if err != nil {
		return nil, err
	}
	idx := map[uint64]int{}
	ids := []uint64{}
	for rows.Next() {
		var s model.Sale
		if err := rows.Scan(&s.ID, &s.Date, &s.Total); err != nil {
			rows.Close()
			return nil, err
		}
		s.Items = []model.SaleItem{}
		idx[s.ID] = len(sales)
		ids = append(ids, s.ID)
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(ids) == 0 {
		return sales, nil
	}

	ph, args := inPlaceholders(ids)
	itemRows, err := r.db.QueryContext(ctx,
		`SELECT si.id, si.sale_id, si.product_id, si.quantity, si.unit_price,
		        p.id, p.name, p.price, p.stock, p.image_url
		   FROM sale_items si
		   JOIN products p ON p.id = si.product_id
		  WHERE si.sale_id IN (`+ph+`)
		  ORDER BY si.sale_id, si.id`, args...)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	products := map[uint64]*model.Product{}
	for itemRows.Next() {
		var it model.SaleItem
		var p model.Product
		if err := itemRows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice,
			&p.ID, &p.Name, &p.Price, &p.Stock, &p.ImageURL); err != nil {
			return nil, err
		}
		if cached, ok := products[p.ID]; ok {
			it.Product = cached
		} else {
			products[p.ID] = &p
			it.Product = &p
		}
		if i, ok := idx[it.SaleID]; ok {
			sales[i].Items = append(sales[i].Items, it)
		}
	}
	return sales, itemRows.Err()
}
