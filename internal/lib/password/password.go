package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

func Hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return hash, nil
}

// Check compares in constant time; a nil error means the password matches.
func Check(hash []byte, password string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(password))
}
