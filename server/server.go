// Package server exposes the social login flow over HTTP.
//
// Usage:
//
//	srv := server.New(
//		server.WithResolver(resolver),
//		server.WithClient(githubClient),
//		server.WithStateSigner(oauthclient.NewStateSigner(secret)),
//		server.WithSessionIssuer(issuer),
//	)
//	srv.Start(ctx)
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/dahromy/socialauth"
	"github.com/dahromy/socialauth/account"
	"github.com/dahromy/socialauth/logging"
	"github.com/dahromy/socialauth/oauthclient"
	"github.com/dahromy/socialauth/provider"
	"github.com/dahromy/socialauth/session"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ShutdownTimeout bounds how long Shutdown waits for connections to drain.
const ShutdownTimeout = 2 * time.Second

// Option customizes the server.
type Option func(*Server)

// WithHost overrides server.host.
func WithHost(host string) Option {
	return func(s *Server) {
		s.host = host
	}
}

// WithPort overrides server.port.
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithResolver sets the account resolver used by every login route.
func WithResolver(r *account.Resolver) Option {
	return func(s *Server) {
		s.resolver = r
	}
}

// WithClient enables /connect and /oauth/check for the client's provider.
func WithClient(c *oauthclient.Client) Option {
	return func(s *Server) {
		s.clients[c.Provider()] = c
	}
}

// WithStateSigner sets the signer protecting the OAuth state parameter.
func WithStateSigner(signer *oauthclient.StateSigner) Option {
	return func(s *Server) {
		s.states = signer
	}
}

// WithSessionIssuer sets the issuer of identity cookies.
func WithSessionIssuer(issuer *session.Issuer) Option {
	return func(s *Server) {
		s.sessions = issuer
	}
}

// WithLogger sets the root logger for request scopes.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// Server serves the login routes.
type Server struct {
	host string
	port int

	resolver *account.Resolver
	clients  map[provider.Name]*oauthclient.Client
	states   *oauthclient.StateSigner
	sessions *session.Issuer
	logger   logging.Logger
	security SecurityHeaders

	httpServer *http.Server
}

// New returns a server bound to server.host and server.port unless
// overridden.
func New(opts ...Option) *Server {
	s := &Server{
		host:    socialauth.ConfigString("server.host"),
		port:    socialauth.ConfigInt("server.port"),
		clients: map[provider.Name]*oauthclient.Client{},
		logger:  logging.NewNopLogger(),
	}
	s.security = SecurityHeaders{
		XFrameOptions:  XFrameOptions(socialauth.ConfigString("server.security.xFrameOptions")),
		HSTSExpiration: socialauth.ConfigDuration("server.security.hstsExpiration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /connect/{service}", redirectHandler(s.handleConnect))
	mux.Handle("GET /oauth/check/{service}", redirectHandler(s.handleCheck))
	mux.Handle("POST /login/google", JSONHandler(s.handleGoogleLogin))
	mux.Handle("GET /login", JSONHandler(s.handleLoginPage))
	mux.Handle("GET /identity", JSONHandler(s.handleIdentity))
	mux.Handle("GET /healthz", JSONHandler(handleHealth))

	return gziphandler.GzipHandler(s.security.Wrap(logging.Middleware(s.logger, mux)))
}

// Start serving requests. Blocks until ctx is canceled, then drains
// connections.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.host, fmt.Sprint(s.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		// Requests keep ctx's values but not its cancellation, so that
		// Shutdown can drain logins already in flight.
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		done <- s.Shutdown(context.WithoutCancel(ctx))
	}()

	logging.Infof(ctx, "listening for traffic on http://%s", ln.Addr())
	err := s.httpServer.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		logging.Errorw(ctx, "shutdown error", "error", err)
	} else {
		logging.Info(ctx, "connections drained")
	}
	return err
}
