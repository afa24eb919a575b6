package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/product-sales-api/internal/model"
	"github.com/iliyamo/product-sales-api/internal/utils"
)

// TokenRepo persists refresh tokens. The raw token string never reaches the
// database; rows are keyed by its SHA-256 digest.
type TokenRepo struct{ db DBTX }

func NewTokenRepo(db DBTX) *TokenRepo { return &TokenRepo{db: db} }

// Insert stores t and fills in its ID and TokenHash.
func (r *TokenRepo) Insert(ctx context.Context, t *model.RefreshToken) error {
	if t.TokenHash == "" {
		t.TokenHash = utils.HashRefreshToken(t.Token)
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, created_at, expires_at, is_revoked) VALUES (?,?,?,?,0)",
		t.UserID, t.TokenHash, t.Created, t.Expires)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// FindActiveForUpdate returns the non-revoked token matching the raw token
// string and locks its row. Expiry is left to the caller. Missing or
// revoked tokens yield ErrNotFound.
func (r *TokenRepo) FindActiveForUpdate(ctx context.Context, token string) (*model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, created_at, expires_at, is_revoked
		   FROM refresh_tokens
		  WHERE token_hash=? AND is_revoked=0
		  LIMIT 1 FOR UPDATE`,
		utils.HashRefreshToken(token)).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Created, &t.Expires, &t.IsRevoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Revoke flips is_revoked for an active token. A token that is already
// revoked (or does not exist) yields ErrNotFound, so the transition happens
// at most once.
func (r *TokenRepo) Revoke(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_revoked=1 WHERE id=? AND is_revoked=0", id)
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

// RevokeAllForUser revokes every active token of a user and returns how
// many were revoked.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_revoked=1 WHERE user_id=? AND is_revoked=0", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
