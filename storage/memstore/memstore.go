// Package memstore implements account.Store in a purely in-memory manner.
//
// Transactions are serialised. Writes go to a copy of the store's state that
// replaces the live state when the transaction commits, so a failed or
// panicking transaction leaves nothing behind.
package memstore

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/dahromy/socialauth/account"
	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/provider"
	"github.com/dahromy/socialauth/storage"
)

// Option is a functional option for configuring the store.
type Option func(*Store)

// WithClock overrides time.Now for updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns a store that provides transient, in-memory storage.
func New(opts ...Option) *Store {
	s := &Store{
		state: newState(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store is an in-memory account.Store.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

type identityKey struct {
	provider provider.Name
	id       string
}

// state holds accounts plus the unique indexes over them.
type state struct {
	accounts   map[string]*account.Account
	byEmail    map[string]string
	byIdentity map[identityKey]string
}

func newState() *state {
	return &state{
		accounts:   map[string]*account.Account{},
		byEmail:    map[string]string{},
		byIdentity: map[identityKey]string{},
	}
}

// Account pointers are shared between copies. Writers replace an entry with a
// fresh clone rather than mutating it.
func (st *state) clone() *state {
	return &state{
		accounts:   maps.Clone(st.accounts),
		byEmail:    maps.Clone(st.byEmail),
		byIdentity: maps.Clone(st.byIdentity),
	}
}

// InTx implements account.Store.
func (s *Store) InTx(ctx context.Context, fn func(account.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return storage.Unavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{state: s.state.clone(), now: s.now}
	if err := fn(t); err != nil {
		return err
	}
	s.state = t.state
	return nil
}

// Len returns the number of stored accounts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.accounts)
}

type tx struct {
	state *state
	now   func() time.Time
}

func (t *tx) FindByIdentity(ctx context.Context, p provider.Name, providerID, contact string) (*account.Account, error) {
	matches := map[string]bool{}
	if id, ok := t.state.byIdentity[identityKey{p, providerID}]; ok {
		matches[id] = true
	}
	if id, ok := t.state.byEmail[contact]; ok {
		matches[id] = true
	}

	switch len(matches) {
	case 0:
		return nil, errors.Mark(storage.ErrNotFound, 0)
	case 1:
		for id := range matches {
			return t.state.accounts[id].Clone(), nil
		}
	}
	return nil, errors.Mark(storage.ErrMultipleResults, 0)
}

func (t *tx) Get(ctx context.Context, id string) (*account.Account, error) {
	acct, ok := t.state.accounts[id]
	if !ok {
		return nil, errors.Mark(storage.ErrNotFound, 0)
	}
	return acct.Clone(), nil
}

func (t *tx) Insert(ctx context.Context, acct *account.Account) error {
	if _, ok := t.state.accounts[acct.ID]; ok {
		return errors.Mark(storage.ErrAlreadyExists, 0).Append("id")
	}
	if _, ok := t.state.byEmail[acct.Email]; ok {
		return errors.Mark(storage.ErrAlreadyExists, 0).Append("email")
	}
	for p, id := range acct.ProviderIDs {
		if _, ok := t.state.byIdentity[identityKey{p, id}]; ok {
			return errors.Mark(storage.ErrAlreadyExists, 0).Append(p.String())
		}
	}

	cp := acct.Clone()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = t.now().UTC()
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = cp.CreatedAt
	}
	t.state.accounts[cp.ID] = cp
	t.state.byEmail[cp.Email] = cp.ID
	for p, id := range cp.ProviderIDs {
		t.state.byIdentity[identityKey{p, id}] = cp.ID
	}
	return nil
}

func (t *tx) LinkProvider(ctx context.Context, accountID string, p provider.Name, providerID string) error {
	if !p.Valid() {
		return errors.Mark(provider.ErrUnsupportedProvider, 0).Append(p.String())
	}
	acct, ok := t.state.accounts[accountID]
	if !ok {
		return errors.Mark(storage.ErrNotFound, 0)
	}
	if acct.HasProvider(p) {
		return errors.Mark(storage.ErrAlreadyExists, 0).Append(p.String() + " already linked")
	}
	if _, ok := t.state.byIdentity[identityKey{p, providerID}]; ok {
		return errors.Mark(storage.ErrAlreadyExists, 0).Append(p.String())
	}

	cp := acct.Clone()
	if cp.ProviderIDs == nil {
		cp.ProviderIDs = map[provider.Name]string{}
	}
	cp.ProviderIDs[p] = providerID
	cp.UpdatedAt = t.now().UTC()
	t.state.accounts[accountID] = cp
	t.state.byIdentity[identityKey{p, providerID}] = accountID
	return nil
}

func (t *tx) SetPasswordHash(ctx context.Context, accountID string, hash []byte) error {
	acct, ok := t.state.accounts[accountID]
	if !ok {
		return errors.Mark(storage.ErrNotFound, 0)
	}
	cp := acct.Clone()
	cp.PasswordHash = append([]byte(nil), hash...)
	cp.UpdatedAt = t.now().UTC()
	t.state.accounts[accountID] = cp
	return nil
}
