package account

import "golang.org/x/crypto/bcrypt"

// Hasher allows password hashing to be customized.
type Hasher interface {
	// Generate a hashed password from a plaintext password.
	Generate(password []byte) ([]byte, error)

	// Compare a hashed password with a plaintext password.
	Compare(hashedPassword, password []byte) error

	// NeedsRehash reports whether hashedPassword was produced with parameters
	// other than the hasher's current ones.
	NeedsRehash(hashedPassword []byte) bool
}

// DefaultHasher uses bcrypt at bcrypt.DefaultCost.
var DefaultHasher Hasher = NewBcryptHasher(bcrypt.DefaultCost)

// TestHasher is a Hasher that does not hash passwords. It is useful for testing
// purposes.
var TestHasher Hasher = testHasher{}

// NewBcryptHasher returns a bcrypt Hasher that generates hashes at cost.
func NewBcryptHasher(cost int) Hasher {
	return bcryptHasher{cost: cost}
}

type bcryptHasher struct {
	cost int
}

func (h bcryptHasher) Generate(password []byte) ([]byte, error) {
	return bcrypt.GenerateFromPassword(password, h.cost)
}

func (bcryptHasher) Compare(hashedPassword, password []byte) error {
	return bcrypt.CompareHashAndPassword(hashedPassword, password)
}

func (h bcryptHasher) NeedsRehash(hashedPassword []byte) bool {
	cost, err := bcrypt.Cost(hashedPassword)
	return err != nil || cost != h.cost
}

type testHasher struct{}

func (testHasher) Generate(password []byte) ([]byte, error) {
	return password, nil
}

func (testHasher) Compare(hashedPassword, password []byte) error {
	if string(hashedPassword) != string(password) {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return nil
}

func (testHasher) NeedsRehash([]byte) bool {
	return false
}
