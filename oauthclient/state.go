package oauthclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/dahromy/socialauth/errors"
	"github.com/dahromy/socialauth/provider"
	"google.golang.org/grpc/codes"
)

// StateExpiration bounds how long a user may spend on the provider's consent
// screen.
const StateExpiration = time.Minute * 5

// ErrInvalidState is returned when the state parameter of a callback is
// missing, tampered with, expired, or issued for another provider.
var ErrInvalidState = errors.NewC("oauth: invalid state parameter", codes.InvalidArgument)

// State is carried through the provider round-trip and remembers where to
// send the user afterwards.
type State struct {
	Provider  provider.Name `json:"p"`
	ReturnTo  string        `json:"r"`
	TimeStamp time.Time     `json:"t"`
	Signature string        `json:"sig"`
}

// Encode returns the base64 JSON form of s.
func (s *State) Encode() string {
	b, _ := json.Marshal(s)
	return base64.URLEncoding.EncodeToString(b)
}

// StateSigner signs and verifies State values with an HMAC-SHA256 key.
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

// NewStateSigner returns a signer keyed with secret.
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret), now: time.Now}
}

// Sign returns an encoded, signed state for a login with p that should end
// at returnTo.
func (s *StateSigner) Sign(p provider.Name, returnTo string) string {
	st := &State{
		Provider:  p,
		ReturnTo:  returnTo,
		TimeStamp: s.now(),
	}
	st.Signature = s.sign(st)
	return st.Encode()
}

// Verify decodes raw and checks its signature, age and provider.
func (s *StateSigner) Verify(p provider.Name, raw string) (*State, error) {
	if raw == "" {
		return nil, errors.Mark(ErrInvalidState, 0).Append("state parameter is empty")
	}
	b, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.Mark(ErrInvalidState, 0).Append("not base64 encoded")
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, errors.Mark(ErrInvalidState, 0).Append("json decode failed")
	}
	if st.TimeStamp.Add(StateExpiration).Before(s.now()) {
		return nil, errors.Mark(ErrInvalidState, 0).Append("state parameter has expired")
	}

	actual, err := hex.DecodeString(st.Signature)
	if err != nil {
		return nil, errors.Mark(ErrInvalidState, 0).Append("invalid signature")
	}
	st.Signature = ""
	if !hmac.Equal(actual, s.mac(&st)) {
		return nil, errors.Mark(ErrInvalidState, 0).Append("invalid signature")
	}
	if st.Provider != p {
		return nil, errors.Mark(ErrInvalidState, 0).Append("issued for " + st.Provider.String())
	}
	return &st, nil
}

func (s *StateSigner) sign(st *State) string {
	return hex.EncodeToString(s.mac(st))
}

func (s *StateSigner) mac(st *State) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(st.Encode()))
	return h.Sum(nil)
}
