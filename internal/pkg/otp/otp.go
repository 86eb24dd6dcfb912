// Package otp generates and checks the numeric one-time codes mailed during
// registration.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strconv"
)

const (
	minCode = 100000
	maxCode = 999999
)

// Generate returns a 6-digit code in [100000, 999999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+minCode, 10), nil
}

func Equal(expected, given string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}
