package account

import (
	"github.com/dahromy/socialauth/errors"
	"google.golang.org/grpc/codes"
)

var (
	// ErrAmbiguousMatch is returned when an identity matches more than one
	// account, for example its provider id on one and its email on another.
	ErrAmbiguousMatch = errors.NewC("account: identity matches more than one account", codes.Unauthenticated).WithPublicMessage("authentication failed")

	// ErrUnsupportedPrincipal is returned when credential operations receive a
	// principal that is not an *Account.
	ErrUnsupportedPrincipal = errors.NewC("account: unsupported principal", codes.Internal)

	// ErrConflict is returned when concurrent writers kept colliding with the
	// resolver after its retry.
	ErrConflict = errors.NewC("account: concurrent update conflict", codes.Aborted)

	// ErrEmptyCredential is returned when an empty password hash is persisted.
	ErrEmptyCredential = errors.NewC("account: empty credential", codes.InvalidArgument)
)
