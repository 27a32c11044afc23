package account

import (
	"context"
	"fmt"
	"time"

	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/logging"
	"github.com/dahromy/socialauth/provider"
	"github.com/dahromy/socialauth/storage"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
)

// Outcome says what a resolution did to the store.
type Outcome int

const (
	// OutcomeMatched means an account already carried the identity. Nothing
	// was written.
	OutcomeMatched Outcome = iota + 1

	// OutcomeLinked means the identity was linked onto an existing account.
	OutcomeLinked

	// OutcomeCreated means a new account was inserted.
	OutcomeCreated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeLinked:
		return "linked"
	case OutcomeCreated:
		return "created"
	}
	return "unknown"
}

// Resolution is the result of resolving an identity.
type Resolution struct {
	Account *Account
	Outcome Outcome
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithEventBus publishes TopicCreated and TopicLinked events to bus after each
// committed write.
func WithEventBus(bus Publisher) Option {
	return func(r *Resolver) {
		r.bus = bus
	}
}

// WithHasher overrides DefaultHasher for RehashIfNeeded.
func WithHasher(h Hasher) Option {
	return func(r *Resolver) {
		r.hasher = h
	}
}

// WithClock overrides time.Now for account timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// Resolver maps external identities onto local accounts.
type Resolver struct {
	store  Store
	bus    Publisher
	hasher Hasher
	now    func() time.Time
}

// NewResolver returns a Resolver backed by store.
func NewResolver(store Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:  store,
		hasher: DefaultHasher,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveOrCreate returns the account bound to identity, linking or creating
// one as needed.
func (r *Resolver) ResolveOrCreate(ctx context.Context, identity provider.Identity) (*Account, error) {
	res, err := r.Resolve(ctx, identity)
	if err != nil {
		return nil, err
	}
	return res.Account, nil
}

// Resolve runs the find, link or create procedure in one transaction:
//
//  1. Find the account whose id for the provider or whose email matches.
//  2. If found and the provider is not linked yet, link it.
//  3. If nothing matched, create an account with the USER role.
//
// A unique key violation during step 2 or 3 means a concurrent request got
// there first. The transaction is rolled back and the procedure runs once
// more, at which point it observes the other writer's row. A second violation
// returns ErrConflict. Store failures are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, identity provider.Identity) (Resolution, error) {
	if err := identity.Validate(); err != nil {
		return Resolution{}, err
	}

	ctx = logging.With(ctx, logging.FromContext(ctx).Named("account").
		With("provider", identity.Provider.String()).
		With("provider_id", identity.ProviderID))

	res, err := r.resolveOnce(ctx, identity)
	if errors.Is(err, storage.ErrAlreadyExists) {
		logging.Infow(ctx, "account: concurrent write detected, retrying", "error", err)
		res, err = r.resolveOnce(ctx, identity)
		if errors.Is(err, storage.ErrAlreadyExists) {
			return Resolution{}, errors.Mark(ErrConflict, 0).Append(err.Error())
		}
	}
	if err != nil {
		return Resolution{}, err
	}

	logging.Infow(ctx, "account: identity resolved", "outcome", res.Outcome.String(), "account_id", res.Account.ID)
	r.publish(res, identity)
	return res, nil
}

func (r *Resolver) resolveOnce(ctx context.Context, identity provider.Identity) (Resolution, error) {
	var res Resolution
	err := r.store.InTx(ctx, func(tx Tx) error {
		acct, err := tx.FindByIdentity(ctx, identity.Provider, identity.ProviderID, identity.Contact)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			acct = newAccount(uuid.NewString(), identity, r.now().UTC())
			if err := tx.Insert(ctx, acct); err != nil {
				return err
			}
			res = Resolution{Account: acct, Outcome: OutcomeCreated}
			return nil

		case errors.Is(err, storage.ErrMultipleResults):
			logging.Errorw(ctx, "account: identity matches more than one account", "contact", identity.Contact)
			return errors.Mark(ErrAmbiguousMatch, 0)

		case err != nil:
			return err
		}

		if existing, ok := acct.ProviderID(identity.Provider); ok {
			if existing != identity.ProviderID {
				// Matched on email while the account is bound to a different
				// id for this provider. The binding is left as is.
				logging.Warnw(ctx, "account: email matched an account linked to another provider id",
					"account_id", acct.ID, "linked_provider_id", existing)
			}
			res = Resolution{Account: acct, Outcome: OutcomeMatched}
			return nil
		}

		if err := tx.LinkProvider(ctx, acct.ID, identity.Provider, identity.ProviderID); err != nil {
			return err
		}
		linked, err := tx.Get(ctx, acct.ID)
		if err != nil {
			return err
		}
		res = Resolution{Account: linked, Outcome: OutcomeLinked}
		return nil
	})
	return res, err
}

func (r *Resolver) publish(res Resolution, identity provider.Identity) {
	if r.bus == nil {
		return
	}
	evt := Event{
		AccountID:  res.Account.ID,
		Provider:   identity.Provider,
		ProviderID: identity.ProviderID,
		Contact:    identity.Contact,
	}
	switch res.Outcome {
	case OutcomeCreated:
		r.bus.Publish(TopicCreated, evt)
	case OutcomeLinked:
		r.bus.Publish(TopicLinked, evt)
	}
}

// UpgradeCredential persists newHash as the principal's password hash. Only
// *Account principals are accepted; anything else is a programming error and
// returns ErrUnsupportedPrincipal. No other field is touched.
func (r *Resolver) UpgradeCredential(ctx context.Context, p Principal, newHash []byte) error {
	acct, ok := p.(*Account)
	if !ok || acct == nil {
		typ := fmt.Sprintf("%T", p)
		logging.Errorw(ctx, "account: credential upgrade on unsupported principal", "principal_type", typ)
		return errors.Mark(ErrUnsupportedPrincipal, 0).Append(typ)
	}
	if len(newHash) == 0 {
		return errors.Mark(ErrEmptyCredential, 0)
	}

	err := r.store.InTx(ctx, func(tx Tx) error {
		return tx.SetPasswordHash(ctx, acct.ID, newHash)
	})
	if err != nil {
		return err
	}
	acct.PasswordHash = newHash
	logging.Infow(ctx, "account: credential upgraded", "account_id", acct.ID)
	return nil
}

// RehashIfNeeded re-hashes password with the resolver's hasher when the
// principal's stored hash was produced with different parameters. The
// password must match the stored hash. It reports whether a new hash was
// persisted.
func (r *Resolver) RehashIfNeeded(ctx context.Context, p Principal, password []byte) (bool, error) {
	acct, ok := p.(*Account)
	if !ok || acct == nil {
		return false, r.UpgradeCredential(ctx, p, nil)
	}
	if len(acct.PasswordHash) == 0 || !r.hasher.NeedsRehash(acct.PasswordHash) {
		return false, nil
	}
	if err := r.hasher.Compare(acct.PasswordHash, password); err != nil {
		return false, errors.WithCode(err, codes.Unauthenticated)
	}
	hash, err := r.hasher.Generate(password)
	if err != nil {
		return false, errors.Wrap(err, 0)
	}
	if err := r.UpgradeCredential(ctx, acct, hash); err != nil {
		return false, err
	}
	return true, nil
}
