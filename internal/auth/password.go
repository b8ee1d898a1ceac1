package auth

import "golang.org/x/crypto/bcrypt"

const bcryptCost = 12

// dummyHash is compared against when an account does not exist so that login
// takes the same time for unknown emails and wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("collab-dummy-password"), bcryptCost)

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(b), err
}

// VerifyPassword never returns an error: a malformed hash is simply a mismatch.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
