package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const Length = 6

var upper = big.NewInt(900000)

// Generate returns a random six digit code in [100000, 999999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("token.Generate: %w", err)
	}

	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
