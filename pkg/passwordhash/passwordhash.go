// Package passwordhash provides the password hashing primitives used when a
// user changes their password.
//
// Two algorithms are supported: bcrypt and Argon2id. Hashes are
// self-describing, so a Hasher built with New verifies either format and
// produces new hashes with the configured algorithm.
package passwordhash

import (
	"errors"
	"fmt"
	"strings"
)

// Algorithm identifies a hashing scheme
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// ErrEmptyPassword is returned when hashing or verifying an empty password
var ErrEmptyPassword = errors.New("password cannot be empty")

// Hasher defines the interface for password hashing implementations
type Hasher interface {
	// Hash hashes a password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored hash
	Verify(password, hashedPassword string) (bool, error)
}

// Detect returns the algorithm that produced hashedPassword
func Detect(hashedPassword string) (Algorithm, error) {
	switch {
	case strings.HasPrefix(hashedPassword, "$argon2id$"):
		return AlgorithmArgon2id, nil
	case strings.HasPrefix(hashedPassword, "$2a$"),
		strings.HasPrefix(hashedPassword, "$2b$"),
		strings.HasPrefix(hashedPassword, "$2y$"):
		return AlgorithmBcrypt, nil
	default:
		return "", errors.New("unrecognized password hash format")
	}
}

// MultiHasher hashes with one algorithm and verifies any supported one
type MultiHasher struct {
	current Algorithm
	hashers map[Algorithm]Hasher
}

// New creates a MultiHasher that produces hashes with the given algorithm
func New(algorithm Algorithm) (*MultiHasher, error) {
	h := &MultiHasher{
		current: algorithm,
		hashers: map[Algorithm]Hasher{
			AlgorithmBcrypt:   NewBcryptHasher(0),
			AlgorithmArgon2id: NewArgon2Hasher(),
		},
	}
	if _, ok := h.hashers[algorithm]; !ok {
		return nil, fmt.Errorf("unsupported password hash algorithm: %s", algorithm)
	}
	return h, nil
}

func (h *MultiHasher) Hash(password string) (string, error) {
	return h.hashers[h.current].Hash(password)
}

func (h *MultiHasher) Verify(password, hashedPassword string) (bool, error) {
	algorithm, err := Detect(hashedPassword)
	if err != nil {
		return false, err
	}
	return h.hashers[algorithm].Verify(password, hashedPassword)
}
