package sessions

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier checks the shared admin password against a bcrypt hash.
// The zero value rejects everything.
type PasswordVerifier struct {
	hash []byte
}

// NewPasswordVerifier prefers a pre-computed bcrypt hash and otherwise
// hashes the plaintext once. With neither set, every Verify fails.
func NewPasswordVerifier(plain, hash string) (*PasswordVerifier, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, errors.New("ADMIN_PASSWORD_HASH is not a bcrypt hash")
		}
		return &PasswordVerifier{hash: []byte(hash)}, nil
	}
	if plain == "" {
		return &PasswordVerifier{}, nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &PasswordVerifier{hash: h}, nil
}

// Configured reports whether an admin password is set.
func (v *PasswordVerifier) Configured() bool {
	return v != nil && len(v.hash) > 0
}

func (v *PasswordVerifier) Verify(password string) bool {
	if !v.Configured() || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(password)) == nil
}
