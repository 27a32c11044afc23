package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_Compare(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	password := []byte("my-secure-password")

	hashed, err := hasher.Generate(password)
	require.NoError(t, err)
	assert.NotEqual(t, password, hashed)

	tests := []struct {
		name    string
		plain   []byte
		wantErr bool
	}{
		{"correct password", password, false},
		{"incorrect password", []byte("wrong-password"), true},
		{"empty password", []byte(""), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := hasher.Compare(hashed, tt.plain)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBcryptHasher_NeedsRehash(t *testing.T) {
	low, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.False(t, NewBcryptHasher(bcrypt.MinCost).NeedsRehash(low))
	assert.True(t, NewBcryptHasher(bcrypt.MinCost+1).NeedsRehash(low))
	assert.True(t, NewBcryptHasher(bcrypt.MinCost).NeedsRehash([]byte("not a bcrypt hash")))
}

func TestTestHasher(t *testing.T) {
	hashed, err := TestHasher.Generate([]byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, []byte("pw"), hashed)

	assert.NoError(t, TestHasher.Compare(hashed, []byte("pw")))
	assert.Equal(t, bcrypt.ErrMismatchedHashAndPassword, TestHasher.Compare(hashed, []byte("other")))
	assert.False(t, TestHasher.NeedsRehash(hashed))
}
