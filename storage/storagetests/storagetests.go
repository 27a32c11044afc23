// Package storagetests provides common acceptance tests for account.Store
// implementations.
package storagetests

import (
	"context"
	"testing"
	"time"

	"github.com/dahromy/socialauth/account"
	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/provider"
	"github.com/dahromy/socialauth/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewAccount returns an unsaved account linked to a single provider.
func NewAccount(email string, p provider.Name, providerID string) *account.Account {
	now := time.Now().UTC().Truncate(time.Second)
	return &account.Account{
		ID:          uuid.NewString(),
		Email:       email,
		Roles:       []string{account.RoleUser},
		ProviderIDs: map[provider.Name]string{p: providerID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Insert saves accounts in their own transaction, failing the test on error.
func Insert(t *testing.T, s account.Store, accts ...*account.Account) {
	t.Helper()
	err := s.InTx(t.Context(), func(tx account.Tx) error {
		for _, a := range accts {
			if err := tx.Insert(t.Context(), a); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// Get reads an account in its own transaction.
func Get(t *testing.T, s account.Store, id string) (*account.Account, error) {
	t.Helper()
	var acct *account.Account
	err := s.InTx(t.Context(), func(tx account.Tx) error {
		var err error
		acct, err = tx.Get(t.Context(), id)
		return err
	})
	return acct, err
}

func find(ctx context.Context, s account.Store, p provider.Name, providerID, contact string) (*account.Account, error) {
	var acct *account.Account
	err := s.InTx(ctx, func(tx account.Tx) error {
		var err error
		acct, err = tx.FindByIdentity(ctx, p, providerID, contact)
		return err
	})
	return acct, err
}

// Run exercises newStore against the behaviour the resolver relies on. Each
// subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) account.Store) {
	t.Run("InsertGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		a := NewAccount("dev@example.com", provider.GitHub, "42")
		Insert(t, s, a)

		got, err := Get(t, s, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, "dev@example.com", got.Email)
		assert.Equal(t, []string{account.RoleUser}, got.Roles)
		assert.Equal(t, map[provider.Name]string{provider.GitHub: "42"}, got.ProviderIDs)
		assert.Empty(t, got.PasswordHash)
		assert.False(t, got.CreatedAt.IsZero())
		assert.False(t, got.UpdatedAt.IsZero())
	})

	t.Run("GetNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := Get(t, s, uuid.NewString())
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})

	t.Run("FindByProviderID", func(t *testing.T) {
		s := newStore(t)
		a := NewAccount("dev@example.com", provider.GitHub, "42")
		Insert(t, s, a)

		got, err := find(t.Context(), s, provider.GitHub, "42", "other@example.com")
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
	})

	t.Run("FindByEmail", func(t *testing.T) {
		s := newStore(t)
		a := NewAccount("dev@example.com", provider.GitHub, "42")
		Insert(t, s, a)

		got, err := find(t.Context(), s, provider.Facebook, "7", "dev@example.com")
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
	})

	t.Run("FindMatchesProviderColumnOnly", func(t *testing.T) {
		s := newStore(t)
		Insert(t, s, NewAccount("dev@example.com", provider.GitHub, "42"))

		_, err := find(t.Context(), s, provider.Google, "42", "someone@example.com")
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})

	t.Run("FindNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := find(t.Context(), s, provider.GitHub, "42", "dev@example.com")
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})

	t.Run("FindMultipleResults", func(t *testing.T) {
		s := newStore(t)
		Insert(t, s,
			NewAccount("first@example.com", provider.GitHub, "42"),
			NewAccount("second@example.com", provider.Google, "99"),
		)

		_, err := find(t.Context(), s, provider.GitHub, "42", "second@example.com")
		assert.True(t, errors.Is(err, storage.ErrMultipleResults), "got %v", err)
	})

	t.Run("InsertDuplicateEmail", func(t *testing.T) {
		s := newStore(t)
		Insert(t, s, NewAccount("dev@example.com", provider.GitHub, "42"))

		err := s.InTx(t.Context(), func(tx account.Tx) error {
			return tx.Insert(t.Context(), NewAccount("dev@example.com", provider.Google, "99"))
		})
		assert.True(t, errors.Is(err, storage.ErrAlreadyExists), "got %v", err)
	})

	t.Run("InsertDuplicateProviderID", func(t *testing.T) {
		s := newStore(t)
		Insert(t, s, NewAccount("dev@example.com", provider.GitHub, "42"))

		err := s.InTx(t.Context(), func(tx account.Tx) error {
			return tx.Insert(t.Context(), NewAccount("other@example.com", provider.GitHub, "42"))
		})
		assert.True(t, errors.Is(err, storage.ErrAlreadyExists), "got %v", err)
	})

	t.Run("LinkProvider", func(t *testing.T) {
		s := newStore(t)
		a := NewAccount("dev@example.com", provider.GitHub, "42")
		Insert(t, s, a)

		err := s.InTx(t.Context(), func(tx account.Tx) error {
			return tx.LinkProvider(t.Context(), a.ID, provider.Google, "99")
		})
		require.NoError(t, err)

		got, err := Get(t, s, a.ID)
		require.NoError(t, err)
		assert.Equal(t, map[provider.Name]string{provider.GitHub: "42", provider.Google: "99"}, got.ProviderIDs)
		assert.Equal(t, "dev@example.com", got.Email)
		assert.Equal(t, []string{account.RoleUser}, got.Roles)
	})

	t.Run("LinkProviderNeverOverwrites", func(t *testing.T) {
		s := newStore(t)
		a := NewAccount("dev@example.com", provider.GitHub, "42")
		Insert(t, s, a)

		err := s.InTx(t.Context(), func(tx account.Tx) error {
			return tx.LinkProvider(t.Context(), a.ID, provider.GitHub, "43")
		})
		assert.True(t, errors.Is(err, storage.ErrAlreadyExists), "got %v", err)

		got, err := Get(t, s, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "42", got.ProviderIDs[provider.GitHub])
	})

	t.Run("LinkProviderHeldByAnotherAccount", func(t *testing.T) {
		s := newStore(t)
		a := NewAccount("a@example.com", provider.GitHub, "42")
		b := NewAccount("b@example.com", provider.Google, "99")
		Insert(t, s, a, b)

		err := s.InTx(t.Context(), func(tx account.Tx) error {
			return tx.LinkProvider(t.Context(), b.ID, provider.GitHub, "42")
		})
		assert.True(t, errors.Is(err, storage.ErrAlreadyExists), "got %v", err)
	})

	t.Run("SetPasswordHash", func(t *testing.T) {
		s := newStore(t)
		a := NewAccount("dev@example.com", provider.GitHub, "42")
		Insert(t, s, a)

		err := s.InTx(t.Context(), func(tx account.Tx) error {
			return tx.SetPasswordHash(t.Context(), a.ID, []byte("$2a$10$hash"))
		})
		require.NoError(t, err)

		got, err := Get(t, s, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("$2a$10$hash"), got.PasswordHash)
		assert.Equal(t, a.ProviderIDs, got.ProviderIDs)
		assert.Equal(t, a.Email, got.Email)
	})

	t.Run("SetPasswordHashNotFound", func(t *testing.T) {
		s := newStore(t)
		err := s.InTx(t.Context(), func(tx account.Tx) error {
			return tx.SetPasswordHash(t.Context(), uuid.NewString(), []byte("hash"))
		})
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		s := newStore(t)
		a := NewAccount("dev@example.com", provider.GitHub, "42")
		boom := errors.New("boom")

		err := s.InTx(t.Context(), func(tx account.Tx) error {
			if err := tx.Insert(t.Context(), a); err != nil {
				return err
			}
			return boom
		})
		assert.Equal(t, boom, err)

		_, err = Get(t, s, a.ID)
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})

	t.Run("RollbackOnPanic", func(t *testing.T) {
		s := newStore(t)
		a := NewAccount("dev@example.com", provider.GitHub, "42")

		assert.Panics(t, func() {
			_ = s.InTx(t.Context(), func(tx account.Tx) error {
				if err := tx.Insert(t.Context(), a); err != nil {
					return err
				}
				panic("boom")
			})
		})

		_, err := Get(t, s, a.ID)
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		err := s.InTx(ctx, func(tx account.Tx) error {
			_, err := tx.Get(ctx, uuid.NewString())
			return err
		})
		assert.True(t, errors.Is(err, storage.ErrUnavailable), "got %v", err)
	})
}
