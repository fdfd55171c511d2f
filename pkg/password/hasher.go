// Package password hashes and verifies account passwords with argon2id.
//
// Hashes use the PHC string format
//
//	$argon2id$v=19$m=<KiB>,t=<iterations>,p=<lanes>$<salt>$<key>
//
// with unpadded standard base64, so hashes written by other argon2
// implementations using the same format verify unchanged.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen = 16
	keyLen  = 32
)

var (
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password cannot be empty")
	// ErrMismatch is returned when the password does not match the hash.
	ErrMismatch = errors.New("password does not match")
	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Params are the argon2id cost parameters.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams match the argon2 crate defaults the original admin tool used.
var DefaultParams = Params{MemoryKiB: 19 * 1024, Iterations: 2, Parallelism: 1}

// Argon2idHasher hashes with fixed params and verifies any argon2id PHC hash.
type Argon2idHasher struct {
	params Params
}

// NewArgon2idHasher creates a hasher. Zero fields fall back to DefaultParams.
func NewArgon2idHasher(params Params) *Argon2idHasher {
	if params.MemoryKiB == 0 {
		params.MemoryKiB = DefaultParams.MemoryKiB
	}
	if params.Iterations == 0 {
		params.Iterations = DefaultParams.Iterations
	}
	if params.Parallelism == 0 {
		params.Parallelism = DefaultParams.Parallelism
	}
	return &Argon2idHasher{params: params}
}

// Hash derives a salted argon2id hash using a fresh random salt.
func (h *Argon2idHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, keyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Compare returns nil on match, ErrMismatch on a wrong password and an error
// wrapping ErrMalformedHash when encoded cannot be parsed.
func (h *Argon2idHasher) Compare(plaintext, encoded string) error {
	decoded, err := decode(encoded)
	if err != nil {
		return err
	}

	computed := argon2.IDKey([]byte(plaintext), decoded.salt, decoded.params.Iterations, decoded.params.MemoryKiB, decoded.params.Parallelism, uint32(len(decoded.key)))
	if subtle.ConstantTimeCompare(computed, decoded.key) == 1 {
		return nil
	}
	return ErrMismatch
}

// Verify reports whether plaintext matches encoded. Malformed hashes never match.
func (h *Argon2idHasher) Verify(plaintext, encoded string) bool {
	return h.Compare(plaintext, encoded) == nil
}

// Upper bounds on stored hash parameters. Anything larger is treated as
// malformed rather than handed to argon2.
const (
	MaxMemoryKiB  = 1 << 20
	MaxIterations = 64
	maxSaltLen    = 64
	maxKeyLen     = 1024
)

type decodedHash struct {
	params Params
	salt   []byte
	key    []byte
}

func decode(encoded string) (*decodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 6 segments", ErrMalformedHash)
	}
	if parts[1] != "argon2id" {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("%w: version: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	var memory, iterations, parallelism uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return nil, fmt.Errorf("%w: params: %v", ErrMalformedHash, err)
	}
	if memory == 0 || iterations == 0 || parallelism == 0 || parallelism > 255 {
		return nil, fmt.Errorf("%w: params out of range", ErrMalformedHash)
	}
	if memory > MaxMemoryKiB || iterations > MaxIterations {
		return nil, fmt.Errorf("%w: cost exceeds m=%d,t=%d", ErrMalformedHash, MaxMemoryKiB, MaxIterations)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("%w: key: %v", ErrMalformedHash, err)
	}
	if len(salt) == 0 || len(salt) > maxSaltLen || len(key) == 0 || len(key) > maxKeyLen {
		return nil, fmt.Errorf("%w: salt or key length", ErrMalformedHash)
	}

	return &decodedHash{
		params: Params{MemoryKiB: memory, Iterations: iterations, Parallelism: uint8(parallelism)},
		salt:   salt,
		key:    key,
	}, nil
}
