// Package provider describes the closed set of external identity providers and
// normalizes the user objects they return into a single Identity shape.
package provider

import (
	"strings"

	"github.com/dahromy/socialauth/errors"
)

// Name identifies an external identity provider.
type Name string

const (
	GitHub    Name = "github"
	Google    Name = "google"
	Facebook  Name = "facebook"
	Instagram Name = "instagram"
)

var all = []Name{GitHub, Google, Facebook, Instagram}

// All returns every supported provider in a stable order.
func All() []Name {
	return append([]Name(nil), all...)
}

// Parse returns the provider named s. Matching is case insensitive.
func Parse(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	if n.Valid() {
		return n, nil
	}
	return "", errors.Mark(ErrUnsupportedProvider, 0).Append(s)
}

func (n Name) String() string {
	return string(n)
}

// Valid reports whether n is one of the supported providers.
func (n Name) Valid() bool {
	_, ok := extractors[n]
	return ok
}

var scopes = map[Name][]string{
	GitHub: {"read:user", "user:email"},
	Google: {
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
		"openid",
	},
	Facebook:  {"public_profile", "email"},
	Instagram: {"user_profile", "user_media"},
}

// Scopes returns the OAuth scopes requested when redirecting to n. Unknown
// providers get an empty set.
func Scopes(n Name) []string {
	return append([]string{}, scopes[n]...)
}
