// Package repository defines error values shared by the repositories. They
// let the service layer tell "nothing there" and "constraint hit" apart
// from storage failures without inspecting driver errors itself.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist or, for
// state transitions, when no row matched the expected prior state.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique index, such as
// registering an email that is already taken.
var ErrDuplicate = errors.New("duplicate")

// ErrConflict is returned when a delete or update cannot be performed
// because other rows still reference the target, e.g. deleting a product
// that appears in recorded sales.
var ErrConflict = errors.New("conflict")

const (
	mysqlDuplicateEntry   = 1062
	mysqlRowIsReferenced  = 1451
	mysqlRowIsReferenced2 = 1217
)

func isMySQLError(err error, codes ...uint16) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	for _, c := range codes {
		if me.Number == c {
			return true
		}
	}
	return false
}
