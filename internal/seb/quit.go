package seb

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrQuitPasswordMismatch is returned when the presented quit password does
// not match the stored hash.
var ErrQuitPasswordMismatch = errors.New("quit password mismatch")

// HashQuitPassword hashes a session quit password for storage.
func HashQuitPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(hash), err
}

// CheckQuitPassword compares a presented quit password against the stored
// bcrypt hash.
func CheckQuitPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrQuitPasswordMismatch
	}
	return nil
}
