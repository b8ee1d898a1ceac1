package auth

import (
	"crypto/rand"
	"encoding/hex"
)

const (
	RegistrationTokenLength = 10
	registrationAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	resetTokenBytes         = 32
)

// NewRegistrationToken returns 10 symbols from [A-Z0-9]. Each symbol is a
// random byte reduced modulo 36, which leaves a slight bias toward the first
// 4 symbols that is accepted for a short-lived, admin-issued code.
func NewRegistrationToken() (string, error) {
	b := make([]byte, RegistrationTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, RegistrationTokenLength)
	for i, v := range b {
		out[i] = registrationAlphabet[int(v)%len(registrationAlphabet)]
	}
	return string(out), nil
}

// NewResetToken returns 32 random bytes as 64 lowercase hex characters.
func NewResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
