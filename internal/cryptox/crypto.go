// Package cryptox holds the password hashing primitives used for account
// credentials.
package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 32
	KeySize  = 32

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// NewSalt returns a fresh random salt for a new account.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// HashPassword derives a slow argon2id verifier from password and salt.
func HashPassword(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, KeySize)
}

// VerifyPassword re-derives the verifier for password and compares it with
// the stored one in constant time.
func VerifyPassword(password, salt, stored []byte) bool {
	candidate := HashPassword(password, salt)
	defer common.WipeByteArray(candidate)
	return subtle.ConstantTimeCompare(candidate, stored) == 1
}
