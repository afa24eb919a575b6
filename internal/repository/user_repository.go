package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/product-sales-api/internal/model"
)

// UserRepo reads and writes the users table.
type UserRepo struct{ db DBTX }

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{db: db} }

const userColumns = "id, first_name, last_name, email, password_hash, created_at"

// Insert creates u and fills in its ID and CreatedAt. A taken email yields
// ErrDuplicate. The email must already be normalized.
func (r *UserRepo) Insert(ctx context.Context, u *model.User) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (first_name, last_name, email, password_hash) VALUES (?,?,?,?)",
		u.FirstName, u.LastName, u.Email, u.PasswordHash)
	if err != nil {
		if isMySQLError(err, mysqlDuplicateEntry) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return r.db.QueryRowContext(ctx, "SELECT created_at FROM users WHERE id=?", u.ID).Scan(&u.CreatedAt)
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func (r *UserRepo) scanOne(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
