package model

import "time"

// User represents an account stored in the `users` table.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	FirstName    – given name, at most 100 characters.
//	LastName     – family name, at most 100 characters.
//	Email        – trimmed, lower-cased and unique email address.
//	PasswordHash – base64 SHA-256 digest of the password.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the token string is persisted; Token carries the raw
// value between issuance and the response and is empty on rows read back.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owner of the token.
//	Token     – raw token string handed to the client (not stored).
//	TokenHash – SHA-256 hex digest of Token.
//	Created   – issuance timestamp.
//	Expires   – Created + 7 days.
//	IsRevoked – set once when the token is rotated or logged out.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	UserID    uint64    // refresh_tokens.user_id
	Token     string    // not persisted
	TokenHash string    // refresh_tokens.token_hash
	Created   time.Time // refresh_tokens.created_at
	Expires   time.Time // refresh_tokens.expires_at
	IsRevoked bool      // refresh_tokens.is_revoked
}

// Usable reports whether the token can still be exchanged at now.
func (t RefreshToken) Usable(now time.Time) bool {
	return !t.IsRevoked && !t.Expires.Before(now)
}
