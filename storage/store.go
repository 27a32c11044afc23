// Package storage holds the pieces shared by every accounts store: the error
// sentinels callers match on and the helpers backends use to produce them.
//
// Backends live in subpackages:
//
//	memstore.New()                          // tests and single process demos
//	sqlitestore.New("file:accounts.db")     // embedded
//	postgres.New("postgres://...")          // production
package storage

import (
	"github.com/dahromy/socialauth/errors"
	"google.golang.org/grpc/codes"
)

var (
	// Returned when a record does not exist.
	ErrNotFound = errors.NewC("record not found", codes.NotFound)

	// Returned when a write conflicts with a unique key, or when a guarded
	// update finds the slot it meant to fill already taken.
	ErrAlreadyExists = errors.NewC("record already exists", codes.AlreadyExists)

	// Returned when a lookup expected at most one record and found more.
	ErrMultipleResults = errors.NewC("query matched more than one record", codes.FailedPrecondition)

	// Returned when the backend could not be reached or failed for a reason
	// other than the ones above.
	ErrUnavailable = errors.NewC("store unavailable", codes.Unavailable)
)

// Unavailable wraps a backend error so that it matches both ErrUnavailable and
// the original cause.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return errors.Errorf("%w: %w", ErrUnavailable, err)
}
