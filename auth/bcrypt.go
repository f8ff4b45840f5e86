package auth

import (
	"errors"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// hashSlots bounds concurrent bcrypt work so a burst of logins cannot
// starve the I/O handlers.
var hashSlots = make(chan struct{}, runtime.GOMAXPROCS(0))

// HashPassword will generate a password hash. The salt is random per
// call, so hashing the same input twice yields different outputs.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	hashSlots <- struct{}{}
	defer func() { <-hashSlots }()

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	hashSlots <- struct{}{}
	defer func() { <-hashSlots }()

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return invalidCredential(err)
		}
		return err
	}
	return nil
}

// RandomPasswordHash generates the hash of a throwaway random secret.
// Accounts created through google or sms get one of these so the
// password column is never empty, while the plaintext is unknowable and
// password login against such accounts always fails the comparison.
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
