// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned by Verify when the password does not match.
var ErrMismatch = errors.New("password mismatch")

// MaxBytes is the longest input bcrypt accepts. The limit is in bytes, so
// a password of multibyte characters hits it well before 72 characters.
const MaxBytes = 72

// Fits reports whether plain is short enough to be hashed.
func Fits(plain string) bool { return len(plain) <= MaxBytes }

// Cost is the bcrypt work factor used for new hashes. Tests lower it.
var Cost = bcrypt.DefaultCost

// dummyHash is compared against when the user does not exist, so a login
// for an unknown username takes as long as one with a wrong password.
var (
	dummyOnce sync.Once
	dummyHash []byte
)

// Hash returns the bcrypt hash of plain.
func Hash(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", fmt.Errorf("password.Hash: %w", err)
	}
	return string(h), nil
}

// Verify reports whether plain matches hash. Any failure, including a
// malformed hash, is reported as ErrMismatch.
func Verify(hash, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return ErrMismatch
	}
	return nil
}

// Burn performs a comparison against a fixed hash and discards the result.
func Burn(plain string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("biblioteca-dummy"), Cost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
