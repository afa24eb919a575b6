package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/product-sales-api/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same repository
// code runs standalone or inside a unit of work.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ProductCatalog is the product capability consumed by sale registration,
// plus the plain catalog maintenance operations.
type ProductCatalog interface {
	FindByID(ctx context.Context, id uint64) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uint64) ([]model.Product, error)
	// FindByIDsForUpdate locks the returned rows until the enclosing
	// transaction ends. Outside a transaction the lock is released at once.
	FindByIDsForUpdate(ctx context.Context, ids []uint64) ([]model.Product, error)
	PersistStockChanges(ctx context.Context, products []*model.Product) error
	List(ctx context.Context) ([]model.Product, error)
	Create(ctx context.Context, p *model.Product) error
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id uint64) error
}

// UserDirectory stores user accounts. Emails are expected in normalized form.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	Insert(ctx context.Context, u *model.User) error
}

// RefreshTokenStore persists refresh tokens and their revocation state.
type RefreshTokenStore interface {
	Insert(ctx context.Context, t *model.RefreshToken) error
	FindActiveForUpdate(ctx context.Context, token string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id uint64) error
	RevokeAllForUser(ctx context.Context, userID uint64) (int64, error)
}

// SaleStore persists sales with their items.
type SaleStore interface {
	Insert(ctx context.Context, s *model.Sale) error
	ListByDateRange(ctx context.Context, start, end model.Date) ([]model.Sale, error)
}

// Repositories groups the stores bound to one connection or transaction.
type Repositories struct {
	Users    UserDirectory
	Tokens   RefreshTokenStore
	Products ProductCatalog
	Sales    SaleStore
}

// NewRepositories binds every store to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Users:    NewUserRepo(db),
		Tokens:   NewTokenRepo(db),
		Products: NewProductRepo(db),
		Sales:    NewSaleRepo(db),
	}
}

// UnitOfWork runs fn against repositories that share one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// SQLUnitOfWork is the database/sql implementation of UnitOfWork.
type SQLUnitOfWork struct {
	db   *sql.DB
	opts *sql.TxOptions
}

// NewUnitOfWork returns a UnitOfWork running at READ COMMITTED. Row locks
// taken with SELECT ... FOR UPDATE serialize competing writers.
func NewUnitOfWork(db *sql.DB) *SQLUnitOfWork {
	return &SQLUnitOfWork{db: db, opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted}}
}

// Do implements UnitOfWork.
func (u *SQLUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	tx, err := u.db.BeginTx(ctx, u.opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, NewRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// inPlaceholders returns "?,?,?" for n arguments and the ids as []any.
func inPlaceholders(ids []uint64) (string, []any) {
	args := make([]any, len(ids))
	buf := make([]byte, 0, len(ids)*2)
	for i, id := range ids {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '?')
		args[i] = id
	}
	return string(buf), args
}
