// Package repository defines the persistence contracts for users, products,
// reviews and orders together with their MySQL implementations. The
// sentinel errors below let services distinguish failure scenarios without
// depending on a particular driver.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write would violate a uniqueness rule,
// such as inserting a username that is already taken.
var ErrDuplicate = errors.New("duplicate")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL unique key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
