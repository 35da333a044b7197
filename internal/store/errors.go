package store

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Error kinds returned (wrapped) by TransactionStore. Match with errors.Is.
var (
	// ErrNotLoaded is returned by every data operation while no database is open.
	ErrNotLoaded = errors.New("database not loaded")

	// ErrNotFound is returned when a keyed row does not exist.
	ErrNotFound = errors.New("transaction not found")

	// ErrConstraint is returned on duplicate ids and other schema breaches.
	ErrConstraint = errors.New("constraint violation")

	// ErrIO covers missing or invalid files, unwritable destinations and
	// storage engine failures.
	ErrIO = errors.New("storage failure")

	// ErrInvalidArgument is returned for malformed input such as a
	// non-positive page size.
	ErrInvalidArgument = errors.New("invalid argument")
)

// KindOf names the error kind of err for logs and transport responses.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotLoaded):
		return "not_loaded"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConstraint):
		return "constraint"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "io"
	}
}

// classify maps a storage engine error onto ErrConstraint or ErrIO.
func classify(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return ErrConstraint
	}
	return ErrIO
}
