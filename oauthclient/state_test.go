package oauthclient

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/dahromy/socialauth/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Encode(t *testing.T) {
	state := &State{
		Provider:  provider.GitHub,
		ReturnTo:  "/dashboard",
		TimeStamp: time.Now(),
		Signature: "test-signature",
	}

	encoded := state.Encode()
	assert.NotEmpty(t, encoded)

	decoded, err := base64.URLEncoding.DecodeString(encoded)
	require.NoError(t, err)

	var decodedState State
	require.NoError(t, json.Unmarshal(decoded, &decodedState))
	assert.Equal(t, state.Provider, decodedState.Provider)
	assert.Equal(t, state.ReturnTo, decodedState.ReturnTo)
	assert.Equal(t, state.Signature, decodedState.Signature)
}

func TestStateSigner_RoundTrip(t *testing.T) {
	s := NewStateSigner("state-secret")

	raw := s.Sign(provider.Google, "/settings?tab=1")
	st, err := s.Verify(provider.Google, raw)
	require.NoError(t, err)
	assert.Equal(t, provider.Google, st.Provider)
	assert.Equal(t, "/settings?tab=1", st.ReturnTo)
	assert.Empty(t, st.Signature)
}

func TestStateSigner_Verify(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewStateSigner("state-secret")
	s.now = func() time.Time { return now }
	valid := s.Sign(provider.GitHub, "/")

	tamper := func(mutate func(*State)) string {
		b, _ := base64.URLEncoding.DecodeString(valid)
		var st State
		_ = json.Unmarshal(b, &st)
		mutate(&st)
		return st.Encode()
	}

	tests := []struct {
		name     string
		provider provider.Name
		raw      string
		signer   *StateSigner
		errMsg   string
	}{
		{"Empty", provider.GitHub, "", s, "state parameter is empty"},
		{"NotBase64", provider.GitHub, "%%%", s, "not base64 encoded"},
		{"NotJSON", provider.GitHub, base64.URLEncoding.EncodeToString([]byte("nope")), s, "json decode failed"},
		{"TamperedReturnTo", provider.GitHub, tamper(func(st *State) { st.ReturnTo = "https://evil.example" }), s, "invalid signature"},
		{"BadSignatureHex", provider.GitHub, tamper(func(st *State) { st.Signature = "zz" }), s, "invalid signature"},
		{"WrongSecret", provider.GitHub, valid, &StateSigner{secret: []byte("other"), now: s.now}, "invalid signature"},
		{"WrongProvider", provider.Facebook, valid, s, "issued for github"},
		{"Expired", provider.GitHub, valid, &StateSigner{secret: s.secret, now: func() time.Time { return now.Add(StateExpiration + time.Second) }}, "expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.signer.Verify(tt.provider, tt.raw)
			require.ErrorIs(t, err, ErrInvalidState)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
