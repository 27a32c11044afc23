// Command socialauthd serves the social login flow configured by
// socialauth.yaml and SA__ environment variables.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dahromy/socialauth"
	"github.com/dahromy/socialauth/account"
	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/eventbus"
	"github.com/dahromy/socialauth/logging"
	"github.com/dahromy/socialauth/oauthclient"
	"github.com/dahromy/socialauth/provider"
	"github.com/dahromy/socialauth/server"
	"github.com/dahromy/socialauth/session"
	"github.com/dahromy/socialauth/storage/memstore"
	"github.com/dahromy/socialauth/storage/postgres"
	"github.com/dahromy/socialauth/storage/sqlitestore"
	"google.golang.org/grpc/codes"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	socialauth.EnsureDefaults()

	logger := logging.NewFromMode(socialauth.ConfigString("logging.mode"))
	ctx := logging.With(context.Background(), logger.Named(socialauth.ConfigString("name")))
	if warnings := socialauth.ValidateConfig(); len(warnings) > 0 {
		logging.Warn(ctx, socialauth.FormatWarnings(warnings))
	}
	if errs := socialauth.ValidateConfigValues(); len(errs) > 0 {
		return errors.Codef(codes.InvalidArgument, "%s", socialauth.FormatValidationErrors(errs))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, socialauth.ConfigString("storage.driver"))
	if err != nil {
		return err
	}
	defer closeStore()

	bus := eventbus.New(ctx)
	bus.Subscribe(account.TopicCreated, logEvent)
	bus.Subscribe(account.TopicLinked, logEvent)

	address := socialauth.ConfigString("address")
	opts := []server.Option{
		server.WithLogger(logger),
		server.WithResolver(account.NewResolver(store, account.WithEventBus(bus))),
		server.WithStateSigner(oauthclient.NewStateSigner(stateSecret())),
		server.WithSessionIssuer(session.NewIssuer(ctx, address, socialauth.ConfigString("session.signingKey"),
			session.WithExpiration(socialauth.ConfigDuration("session.expiration")),
			session.WithCookieName(socialauth.ConfigString("session.cookieName")))),
	}
	clients, err := buildClients(ctx, address)
	if err != nil {
		return err
	}
	for _, c := range clients {
		opts = append(opts, server.WithClient(c))
	}

	err = server.New(opts...).Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if berr := bus.Shutdown(shutdownCtx); berr != nil {
		logging.Errorw(ctx, "eventbus shutdown failed", "error", berr)
	}
	return err
}

// openStore returns the account store selected by storage.driver and a
// function releasing it.
func openStore(ctx context.Context, driver string) (account.Store, func() error, error) {
	dsn := socialauth.ConfigString("storage.dsn")
	prefix := socialauth.ConfigString("storage.prefix")
	autoCreate := socialauth.ConfigBool("storage.autoCreateTables")
	logging.Infow(ctx, "opening account store", "driver", driver)

	switch driver {
	case "", "memory":
		return memstore.New(), func() error { return nil }, nil
	case "sqlite":
		if dsn == "" {
			dsn = ":memory:"
		}
		s, err := sqlitestore.SafeNew(dsn, sqlitestore.WithPrefix(prefix), sqlitestore.WithAutoCreateTables(autoCreate))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "postgres":
		if dsn == "" {
			return nil, nil, errors.Codef(codes.FailedPrecondition, "storage.dsn is required for the postgres driver")
		}
		s, err := postgres.SafeNew(dsn, postgres.WithPrefix(prefix), postgres.WithAutoCreateTables(autoCreate))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, errors.Codef(codes.InvalidArgument, "unknown storage.driver %q", driver)
}

// buildClients returns a client for every provider with credentials
// configured. Providers without credentials are skipped.
func buildClients(ctx context.Context, address string) ([]*oauthclient.Client, error) {
	var clients []*oauthclient.Client
	for _, p := range provider.All() {
		id, secret, ok := socialauth.ProviderCredentials(p)
		if !ok {
			logging.Debugw(ctx, "provider disabled, no credentials", "provider", p.String())
			continue
		}
		c, err := oauthclient.New(p, id, secret, address+"/oauth/check/"+p.String())
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if len(clients) == 0 {
		logging.Warn(ctx, "no providers configured, set providers.<name>.clientId and clientSecret")
	}
	return clients, nil
}

// stateSecret falls back to the session signing key, then to a random
// secret that lives as long as the process.
func stateSecret() string {
	if s := socialauth.ConfigString("oauth.stateSecret"); s != "" {
		return s
	}
	if s := socialauth.ConfigString("session.signingKey"); s != "" {
		return s
	}
	return rand.Text()
}

func logEvent(ctx context.Context, msg *eventbus.Message) error {
	ev, ok := msg.Data.(account.Event)
	if !ok {
		return errors.Codef(codes.Internal, "unexpected payload %T", msg.Data)
	}
	logging.Infow(ctx, "account event", "account_id", ev.AccountID, "provider", ev.Provider.String())
	return nil
}
