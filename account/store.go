package account

import (
	"context"

	"github.com/dahromy/socialauth/provider"
)

// Store is the accounts persistence capability the resolver needs. Backends
// live under storage/.
type Store interface {
	// InTx runs fn inside a transaction. The transaction commits when fn returns
	// nil and rolls back on any error or panic. Errors from fn are returned
	// unchanged.
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is a unit of work against the accounts store. Errors are the sentinels
// declared in package storage.
type Tx interface {
	// FindByIdentity returns the single account whose id for p equals
	// providerID or whose email equals contact. It returns storage.ErrNotFound
	// when nothing matches and storage.ErrMultipleResults when more than one
	// account does.
	FindByIdentity(ctx context.Context, p provider.Name, providerID, contact string) (*Account, error)

	// Get returns the account with the given id or storage.ErrNotFound.
	Get(ctx context.Context, id string) (*Account, error)

	// Insert persists a new account. A clash on id, email or any provider id
	// returns storage.ErrAlreadyExists.
	Insert(ctx context.Context, acct *Account) error

	// LinkProvider sets the provider id for p, only if it is currently unset.
	// If the slot is already filled, or another account holds providerID, it
	// returns storage.ErrAlreadyExists.
	LinkProvider(ctx context.Context, accountID string, p provider.Name, providerID string) error

	// SetPasswordHash replaces the password hash and nothing else.
	SetPasswordHash(ctx context.Context, accountID string, hash []byte) error
}
