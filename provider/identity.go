package provider

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/dahromy/socialauth/errors"
	"google.golang.org/grpc/codes"
)

// RawUser is the decoded JSON object returned by a provider's user-info
// endpoint.
type RawUser map[string]any

// DecodeRawUser reads a JSON object from r. Numbers are kept as json.Number so
// that large numeric ids survive intact.
func DecodeRawUser(r io.Reader) (RawUser, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var u RawUser
	if err := dec.Decode(&u); err != nil {
		return nil, errors.WrapPrefix(err, "provider: decoding user", 0).WithCode(codes.InvalidArgument)
	}
	if u == nil {
		return nil, errors.Mark(ErrMalformedUser, 0)
	}
	return u, nil
}

// Identity is the provider agnostic shape of an external user.
type Identity struct {
	Provider   Name
	ProviderID string

	// Contact is the verified email for email providers, or the handle for
	// providers that expose no email.
	Contact string
}

// ContactMode says what kind of value a provider's contact field holds.
type ContactMode int

const (
	ModeEmail ContactMode = iota
	ModeHandle
)

func (m ContactMode) String() string {
	if m == ModeHandle {
		return "handle"
	}
	return "email"
}

type extractor struct {
	idFields     []string
	contactField string
	verifiedFlag string
	mode         ContactMode
}

var extractors = map[Name]extractor{
	GitHub:    {idFields: []string{"id"}, contactField: "email", mode: ModeEmail},
	Google:    {idFields: []string{"sub", "id"}, contactField: "email", verifiedFlag: "email_verified", mode: ModeEmail},
	Facebook:  {idFields: []string{"id"}, contactField: "email", mode: ModeEmail},
	Instagram: {idFields: []string{"id"}, contactField: "username", mode: ModeHandle},
}

// Mode returns whether n identifies users by email or by handle.
func Mode(n Name) ContactMode {
	return extractors[n].mode
}

// Normalize maps a raw provider user onto an Identity.
func Normalize(n Name, raw RawUser) (Identity, error) {
	ex, ok := extractors[n]
	if !ok {
		return Identity{}, errors.Mark(ErrUnsupportedProvider, 0).Append(string(n))
	}

	var id string
	for _, f := range ex.idFields {
		if id = stringField(raw, f); id != "" {
			break
		}
	}
	if id == "" {
		return Identity{}, errors.Mark(ErrMalformedUser, 0).Append(string(n))
	}

	contact := stringField(raw, ex.contactField)
	if contact == "" {
		return Identity{}, errors.Mark(ErrNotVerifiedEmail, 0).Append(string(n) + " returned no " + ex.mode.String())
	}
	if ex.verifiedFlag != "" && explicitlyFalse(raw[ex.verifiedFlag]) {
		return Identity{}, errors.Mark(ErrNotVerifiedEmail, 0).Append(string(n) + " email is not verified")
	}

	return Identity{Provider: n, ProviderID: id, Contact: contact}, nil
}

// Validate checks that an identity built outside Normalize is usable.
func (id Identity) Validate() error {
	if !id.Provider.Valid() {
		return errors.Mark(ErrUnsupportedProvider, 0).Append(string(id.Provider))
	}
	if strings.TrimSpace(id.ProviderID) == "" {
		return errors.Mark(ErrMalformedUser, 0)
	}
	if strings.TrimSpace(id.Contact) == "" {
		return errors.Mark(ErrNotVerifiedEmail, 0)
	}
	// Padded values would match a different row than the trimmed ones
	// Normalize produces.
	if id.ProviderID != strings.TrimSpace(id.ProviderID) || id.Contact != strings.TrimSpace(id.Contact) {
		return errors.Mark(ErrMalformedUser, 0).Append("surrounding whitespace")
	}
	return nil
}

func stringField(raw RawUser, field string) string {
	var s string
	switch v := raw[field].(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	}
	return strings.TrimSpace(s)
}

func explicitlyFalse(v any) bool {
	switch v := v.(type) {
	case bool:
		return !v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && !b
	}
	return false
}
