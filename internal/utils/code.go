package utils

import (
	"crypto/rand"
	"math/big"
)

const tokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789" // omit easily confused chars

// GenerateToken returns n random characters from tokenAlphabet.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		n = 48
	}
	max := big.NewInt(int64(len(tokenAlphabet)))
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = tokenAlphabet[idx.Int64()]
	}
	return string(b), nil
}
