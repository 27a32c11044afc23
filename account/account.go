// Package account reconciles external identities with local accounts.
//
// A Resolver takes a provider.Identity and, inside a single store transaction,
// either returns the account already bound to it, links it onto the account
// that shares its contact, or creates a new account:
//
//	r := account.NewResolver(store, account.WithEventBus(bus))
//	acct, err := r.ResolveOrCreate(ctx, identity)
package account

import (
	"maps"
	"slices"
	"time"

	"github.com/dahromy/socialauth/provider"
)

// RoleUser is assigned to every account the resolver creates.
const RoleUser = "USER"

// Principal is an authenticated subject. Only *Account principals carry
// credentials this package can manage.
type Principal interface {
	Subject() string
}

// Account is the durable local identity record.
type Account struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`

	// PasswordHash is optional and only replaced by UpgradeCredential.
	PasswordHash []byte `json:"-"`

	// ProviderIDs holds one entry per linked provider. An entry, once set, is
	// never cleared or overwritten.
	ProviderIDs map[provider.Name]string `json:"provider_ids"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PK returns the primary key of the account.
func (a *Account) PK() string {
	return a.ID
}

// Subject implements Principal.
func (a *Account) Subject() string {
	return a.ID
}

// ProviderID returns the id linked for p, if any.
func (a *Account) ProviderID(p provider.Name) (string, bool) {
	id, ok := a.ProviderIDs[p]
	return id, ok && id != ""
}

// HasProvider reports whether p is linked to the account.
func (a *Account) HasProvider(p provider.Name) bool {
	_, ok := a.ProviderID(p)
	return ok
}

// HasRole reports whether the account carries role.
func (a *Account) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Roles = slices.Clone(a.Roles)
	cp.PasswordHash = slices.Clone(a.PasswordHash)
	cp.ProviderIDs = maps.Clone(a.ProviderIDs)
	return &cp
}

func newAccount(id string, identity provider.Identity, now time.Time) *Account {
	return &Account{
		ID:          id,
		Email:       identity.Contact,
		Roles:       []string{RoleUser},
		ProviderIDs: map[provider.Name]string{identity.Provider: identity.ProviderID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
