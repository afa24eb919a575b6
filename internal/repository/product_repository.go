package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/product-sales-api/internal/model"
)

// ProductRepo implements ProductCatalog over the products table.
type ProductRepo struct{ db DBTX }

func NewProductRepo(db DBTX) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = "id, name, price, stock, image_url"

func scanProduct(s interface{ Scan(...any) error }, p *model.Product) error {
	return s.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.ImageURL)
}

// FindByID returns the product or ErrNotFound.
func (r *ProductRepo) FindByID(ctx context.Context, id uint64) (*model.Product, error) {
	var p model.Product
	err := scanProduct(r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id=?", id), &p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByIDs returns the products whose ids are listed, ordered by id.
// Unknown ids are simply absent from the result.
func (r *ProductRepo) FindByIDs(ctx context.Context, ids []uint64) ([]model.Product, error) {
	return r.findByIDs(ctx, ids, "")
}

// FindByIDsForUpdate is FindByIDs with row locks. Rows are locked in id
// order so concurrent sales over the same products cannot deadlock.
func (r *ProductRepo) FindByIDsForUpdate(ctx context.Context, ids []uint64) ([]model.Product, error) {
	return r.findByIDs(ctx, ids, " FOR UPDATE")
}

func (r *ProductRepo) findByIDs(ctx context.Context, ids []uint64, suffix string) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ph, args := inPlaceholders(ids)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id IN ("+ph+") ORDER BY id"+suffix, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PersistStockChanges writes the in-memory stock of each product back. The
// rows are expected to be locked by FindByIDsForUpdate in the same
// transaction.
func (r *ProductRepo) PersistStockChanges(ctx context.Context, products []*model.Product) error {
	for _, p := range products {
		res, err := r.db.ExecContext(ctx, "UPDATE products SET stock=? WHERE id=?", p.Stock, p.ID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// List returns the whole catalog ordered by id.
func (r *ProductRepo) List(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts p and sets its ID.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO products (name, price, stock, image_url) VALUES (?,?,?,?)",
		p.Name, p.Price, p.Stock, p.ImageURL)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Update overwrites every column of the product with p.ID.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET name=?, price=?, stock=?, image_url=? WHERE id=?",
		p.Name, p.Price, p.Stock, p.ImageURL, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a product. Products referenced by sales yield ErrConflict.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		if isMySQLError(err, mysqlRowIsReferenced, mysqlRowIsReferenced2) {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
