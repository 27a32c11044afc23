package oauthclient

import (
	"context"

	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/logging"
	"github.com/dahromy/socialauth/provider"
	"google.golang.org/api/idtoken"
	"google.golang.org/grpc/codes"
)

// ErrInvalidIDToken is returned when a Google ID token fails validation.
var ErrInvalidIDToken = errors.NewC("oauth: invalid id token", codes.Unauthenticated).WithPublicMessage("could not verify your account")

// Swapped in tests; the real validator fetches Google's signing keys.
var validateIDToken = idtoken.Validate

// VerifyIDToken validates an ID token obtained by a client-side Google
// sign-in and returns its claims as a raw user document. See
// https://developers.google.com/identity/sign-in/web/backend-auth
func (c *Client) VerifyIDToken(ctx context.Context, token string) (provider.RawUser, error) {
	if c.provider != provider.Google {
		return nil, errors.Codef(codes.Unimplemented, "oauth: %s does not issue id tokens", c.provider)
	}
	if token == "" {
		return nil, errors.Mark(ErrInvalidIDToken, 0).Append("token is empty")
	}

	payload, err := validateIDToken(ctx, token, c.conf.ClientID)
	if err != nil {
		logging.Errorw(ctx, "oauth: failed to validate id token", "error", err)
		return nil, errors.Errorf("%w: %w", errors.Mark(ErrInvalidIDToken, 0), err)
	}

	raw := provider.RawUser{}
	for k, v := range payload.Claims {
		raw[k] = v
	}
	if _, ok := raw["sub"]; !ok {
		raw["sub"] = payload.Subject
	}
	return raw, nil
}
