package storage

import (
	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/provider"
)

// ProviderColumn returns the column that holds ids issued by p. Only supported
// providers have a column, so the result is safe to splice into SQL.
func ProviderColumn(p provider.Name) (string, error) {
	if !p.Valid() {
		return "", errors.Mark(provider.ErrUnsupportedProvider, 0).Append(p.String())
	}
	return p.String() + "_id", nil
}

// AccountColumns lists the columns of the accounts table in scan order: id,
// email, roles, password_hash, one column per provider in provider.All()
// order, created_at and updated_at.
func AccountColumns() []string {
	cols := []string{"id", "email", "roles", "password_hash"}
	for _, p := range provider.All() {
		col, _ := ProviderColumn(p)
		cols = append(cols, col)
	}
	return append(cols, "created_at", "updated_at")
}
