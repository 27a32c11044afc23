package sqlitestore

import (
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/dahromy/socialauth/account"
	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/provider"
	"github.com/dahromy/socialauth/storage"
	"github.com/dahromy/socialauth/storage/storagetests"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	s, err := SafeNew(":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSqliteStore(t *testing.T) {
	storagetests.Run(t, func(t *testing.T) account.Store {
		return newTestStore(t)
	})
}

func TestSqliteStore_WithPrefix(t *testing.T) {
	storagetests.Run(t, func(t *testing.T) account.Store {
		return newTestStore(t, WithPrefix("test_"))
	})
}

func TestTableName(t *testing.T) {
	s := newTestStore(t, WithPrefix("sa_"))
	assert.Equal(t, "sa_accounts", s.table)

	var name string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", "sa_accounts").Scan(&name)
	require.NoError(t, err)
}

func TestWithoutAutoCreateTables(t *testing.T) {
	s := newTestStore(t, WithAutoCreateTables(false))

	_, err := storagetests.Get(t, s, "missing")
	assert.True(t, errors.Is(err, storage.ErrUnavailable), "got %v", err)
}

func TestResolverAgainstSqlite(t *testing.T) {
	s := newTestStore(t)
	r := account.NewResolver(s)

	first, err := r.ResolveOrCreate(t.Context(), provider.Identity{Provider: provider.GitHub, ProviderID: "42", Contact: "dev@example.com"})
	require.NoError(t, err)

	res, err := r.Resolve(t.Context(), provider.Identity{Provider: provider.Google, ProviderID: "99", Contact: "dev@example.com"})
	require.NoError(t, err)
	assert.Equal(t, account.OutcomeLinked, res.Outcome)
	assert.Equal(t, first.ID, res.Account.ID)
	assert.Equal(t, map[provider.Name]string{provider.GitHub: "42", provider.Google: "99"}, res.Account.ProviderIDs)
	assert.False(t, res.Account.UpdatedAt.Before(res.Account.CreatedAt))
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		expected error
	}{
		{"ErrNoRows", sql.ErrNoRows, storage.ErrNotFound},
		{"UniqueViolation", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, storage.ErrAlreadyExists},
		{"PrimaryKeyViolation", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, storage.ErrAlreadyExists},
		{"NotNullViolation", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, storage.ErrUnavailable},
		{"Busy", sqlite3.Error{Code: sqlite3.ErrBusy}, storage.ErrUnavailable},
		{"BadConn", driver.ErrBadConn, storage.ErrUnavailable},
	}

	assert.NoError(t, translateError(nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translateError(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}
