package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dahromy/socialauth/account"
	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/logging"
	"github.com/dahromy/socialauth/provider"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc/codes"
)

var testAccount = &account.Account{
	ID:    "acct-1",
	Email: "dev@example.com",
	Roles: []string{account.RoleUser},
}

func TestTokenRoundTrip(t *testing.T) {
	ctx := t.Context()
	iss := NewIssuer(ctx, "https://auth.example.com", "secret")

	tokenString, err := iss.Token(ctx, testAccount, provider.GitHub)
	require.NoError(t, err, "failed to issue token")

	claims, err := iss.Parse(ctx, tokenString)
	require.NoError(t, err, "failed to parse token")
	assert.Equal(t, "acct-1", claims.Subject)
	assert.Equal(t, "dev@example.com", claims.Email)
	assert.Equal(t, []string{account.RoleUser}, claims.Roles)
	assert.Equal(t, "github", claims.Provider)
	assert.Equal(t, "https://auth.example.com", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenIDsAreUnique(t *testing.T) {
	ctx := t.Context()
	iss := NewIssuer(ctx, "http://localhost:8000", "secret")

	a, err := iss.Token(ctx, testAccount, provider.Google)
	require.NoError(t, err)
	b, err := iss.Token(ctx, testAccount, provider.Google)
	require.NoError(t, err)

	ca, err := iss.Parse(ctx, a)
	require.NoError(t, err)
	cb, err := iss.Parse(ctx, b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestTokenExpiration(t *testing.T) {
	ctx := t.Context()
	now := time.Now()
	iss := NewIssuer(ctx, "http://localhost:8000", "secret",
		WithExpiration(time.Hour),
		WithClock(func() time.Time { return now }))

	tokenString, err := iss.Token(ctx, testAccount, provider.GitHub)
	require.NoError(t, err)

	t.Run("WithinLeeway", func(t *testing.T) {
		late := NewIssuer(ctx, "http://localhost:8000", "secret",
			WithClock(func() time.Time { return now.Add(time.Hour + 2*time.Second) }))
		_, err := late.Parse(ctx, tokenString)
		assert.NoError(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		later := NewIssuer(ctx, "http://localhost:8000", "secret",
			WithClock(func() time.Time { return now.Add(time.Hour + time.Minute) }))
		_, err := later.Parse(ctx, tokenString)
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
		assert.Equal(t, codes.Unauthenticated, errors.Code(err))
	})
}

func TestTokenSigning(t *testing.T) {
	ctx := t.Context()
	evil := NewIssuer(ctx, "http://localhost:8000", "evil")
	actual := NewIssuer(ctx, "http://localhost:8000", "actual")

	tokenString, err := evil.Token(ctx, testAccount, provider.GitHub)
	require.NoError(t, err)

	_, err = actual.Parse(ctx, tokenString)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestTokenAudience(t *testing.T) {
	ctx := t.Context()
	other := NewIssuer(ctx, "https://other.example.com", "secret")
	iss := NewIssuer(ctx, "https://auth.example.com", "secret")

	tokenString, err := other.Token(ctx, testAccount, provider.GitHub)
	require.NoError(t, err)

	_, err = iss.Parse(ctx, tokenString)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestTokenMissingProvider(t *testing.T) {
	ctx := t.Context()
	iss := NewIssuer(ctx, "http://localhost:8000", "secret")

	tokenString, err := iss.Token(ctx, testAccount, "")
	require.NoError(t, err)

	_, err = iss.Parse(ctx, tokenString)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWithoutAccount(t *testing.T) {
	iss := NewIssuer(t.Context(), "http://localhost:8000", "secret")
	_, err := iss.Token(t.Context(), nil, provider.GitHub)
	assert.Equal(t, codes.Internal, errors.Code(err))
}

func TestRandomSigningKey(t *testing.T) {
	core, obs := observer.New(zap.WarnLevel)
	ctx := logging.With(t.Context(), logging.FromZap(zap.New(core)))

	a := NewIssuer(ctx, "http://localhost:8000", "")
	b := NewIssuer(ctx, "http://localhost:8000", "")
	assert.Len(t, a.signingKey, 64)
	assert.NotEqual(t, a.signingKey, b.signingKey)
	assert.Equal(t, 2, obs.FilterMessage("session: no signing key configured, using a random key").Len())
}

func TestCookie(t *testing.T) {
	tests := []struct {
		name    string
		address string
		secure  bool
	}{
		{"Insecure", "http://localhost:8000", false},
		{"Secure", "https://auth.example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := t.Context()
			iss := NewIssuer(ctx, tt.address, "secret", WithCookieName("my-id"))

			token, err := iss.Token(ctx, testAccount, provider.Facebook)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			iss.SetCookie(rec, token)

			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)
			c := cookies[0]
			assert.Equal(t, "my-id", c.Name)
			assert.Equal(t, token, c.Value)
			assert.Equal(t, "/", c.Path)
			assert.True(t, c.HttpOnly)
			assert.Equal(t, tt.secure, c.Secure)
			assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(c)
			claims, err := iss.FromRequest(req)
			require.NoError(t, err)
			assert.Equal(t, "acct-1", claims.Subject)
			assert.Equal(t, "facebook", claims.Provider)
		})
	}
}

func TestFromRequestWithoutCookie(t *testing.T) {
	iss := NewIssuer(t.Context(), "http://localhost:8000", "secret")
	_, err := iss.FromRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, DefaultCookieName, iss.CookieName())
}
