package provider

import (
	"github.com/dahromy/socialauth/errors"
	"google.golang.org/grpc/codes"
)

var (
	// ErrNotVerifiedEmail is returned when the external user carries no usable
	// contact: no email for email providers, no handle for handle providers, or
	// an email the provider reports as unverified.
	ErrNotVerifiedEmail = errors.NewC("provider: identity has no verified contact", codes.Unauthenticated).WithPublicMessage("could not verify your account")

	// ErrMalformedUser is returned when the external user has no id.
	ErrMalformedUser = errors.NewC("provider: user object has no id", codes.InvalidArgument)

	// ErrUnsupportedProvider is returned for provider names outside the
	// supported set.
	ErrUnsupportedProvider = errors.NewC("provider: unsupported provider", codes.InvalidArgument)
)
