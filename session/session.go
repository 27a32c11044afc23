// Package session turns a resolved account into a signed identity token and
// carries it in a cookie.
//
// Tokens are HS256 JWTs whose subject is the account id and whose issuer and
// audience are the public address of the server, so a token is only accepted
// by the deployment that minted it.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/dahromy/socialauth/account"
	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/logging"
	"github.com/dahromy/socialauth/provider"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
)

const (
	// DefaultCookieName is used when no cookie name is configured.
	DefaultCookieName = "sa-identity"

	// DefaultExpiration is used when no expiration is configured.
	DefaultExpiration = 24 * time.Hour

	jwtLeeway = 5 * time.Second
)

var (
	// No identity cookie was sent with the request.
	ErrNotFound = errors.NewC("identity not found", codes.Unauthenticated)

	// The token was not signed correctly or its claims are incomplete.
	ErrInvalidToken = errors.NewC("token is invalid", codes.Unauthenticated)
)

// Claims registered in an identity token.
type Claims struct {
	jwt.RegisteredClaims
	Email    string   `json:"email"`
	Roles    []string `json:"roles,omitempty"`
	Provider string   `json:"idp"`
}

// Validate is called by the jwt parser after the registered claims pass.
func (c *Claims) Validate() error {
	if c.Subject == "" {
		return errors.Mark(ErrInvalidToken, 0).Append("missing subject")
	}
	if c.Provider == "" {
		return errors.Mark(ErrInvalidToken, 0).Append("missing provider")
	}
	return nil
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithExpiration sets how long issued tokens and cookies remain valid.
func WithExpiration(d time.Duration) Option {
	return func(i *Issuer) {
		i.expiration = d
	}
}

// WithCookieName sets the name of the identity cookie.
func WithCookieName(name string) Option {
	return func(i *Issuer) {
		i.cookieName = name
	}
}

// WithClock stubs time for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// Issuer mints and verifies identity tokens.
type Issuer struct {
	address    string
	signingKey []byte
	expiration time.Duration
	cookieName string
	now        func() time.Time
}

// NewIssuer returns an issuer for the server reachable at address. An empty
// signingKey is replaced by a random one, which invalidates every session on
// restart.
func NewIssuer(ctx context.Context, address, signingKey string, opts ...Option) *Issuer {
	if signingKey == "" {
		logging.Warn(ctx, "session: no signing key configured, using a random key")
		signingKey = randomSigningKey()
	}
	i := &Issuer{
		address:    address,
		signingKey: []byte(signingKey),
		expiration: DefaultExpiration,
		cookieName: DefaultCookieName,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// CookieName returns the name of the identity cookie.
func (i *Issuer) CookieName() string {
	return i.cookieName
}

// Token returns a signed identity token for acct, authenticated through p.
func (i *Issuer) Token(ctx context.Context, acct *account.Account, p provider.Name) (string, error) {
	if acct == nil || acct.ID == "" {
		return "", errors.Codef(codes.Internal, "session: cannot issue a token without an account")
	}
	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   acct.ID,
			Audience:  jwt.ClaimStrings{i.address},
			Issuer:    i.address,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiration)),
		},
		Email:    acct.Email,
		Roles:    acct.Roles,
		Provider: p.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", errors.Wrap(err, 0).WithCode(codes.Internal)
	}
	logging.Debugw(ctx, "session: token issued", "sub", acct.ID, "jti", claims.ID)
	return ss, nil
}

// Parse validates tokenString and returns its claims. Expired tokens and
// tokens minted for another address are rejected.
func (i *Issuer) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			return i.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.address),
		jwt.WithAudience(i.address),
		jwt.WithLeeway(jwtLeeway),
		jwt.WithTimeFunc(i.now),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		logging.Debugw(ctx, "session: rejected token", "error", err)
		return nil, errors.Wrap(err, 0).WithCode(codes.Unauthenticated)
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.Mark(ErrInvalidToken, 0).Append("invalid claims")
}

// SetCookie attaches token to the response as the identity cookie.
func (i *Issuer) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     i.cookieName,
		Value:    token,
		Path:     "/",
		Secure:   strings.HasPrefix(i.address, "https"),
		HttpOnly: true,
		Expires:  i.now().Add(i.expiration),
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest parses the identity cookie sent with r.
func (i *Issuer) FromRequest(r *http.Request) (*Claims, error) {
	c, err := r.Cookie(i.cookieName)
	if err != nil {
		return nil, errors.Mark(ErrNotFound, 0)
	}
	return i.Parse(r.Context(), c.Value)
}

func randomSigningKey() string {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic("failed to generate random signing key: " + err.Error())
	}
	return hex.EncodeToString(key)
}
