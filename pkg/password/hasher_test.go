package password

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Cheap parameters keep the suite fast; production cost is set via config.
var testParams = Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1}

func TestHash(t *testing.T) {
	hasher := NewArgon2idHasher(testParams)

	t.Run("produces phc string", func(t *testing.T) {
		encoded, err := hasher.Hash("admin123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))
	})

	t.Run("salts every call", func(t *testing.T) {
		first, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		second, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.ErrorIs(t, err, ErrEmptyPassword)
	})

	t.Run("zero params use defaults", func(t *testing.T) {
		assert.Equal(t, DefaultParams, NewArgon2idHasher(Params{}).params)
	})
}

func TestVerify(t *testing.T) {
	hasher := NewArgon2idHasher(testParams)

	for _, pw := range []string{"admin123", "correct horse battery staple", "ünïcødé-пароль", " "} {
		encoded, err := hasher.Hash(pw)
		require.NoError(t, err)
		assert.True(t, hasher.Verify(pw, encoded), "round trip for %q", pw)
		assert.False(t, hasher.Verify(pw+"x", encoded), "mismatch for %q", pw)
	}
}

func TestVerifyAcrossParams(t *testing.T) {
	encoded, err := NewArgon2idHasher(Params{MemoryKiB: 2048, Iterations: 2, Parallelism: 2}).Hash("teacher-pass")
	require.NoError(t, err)

	assert.True(t, NewArgon2idHasher(testParams).Verify("teacher-pass", encoded))
}

func TestCompareMalformed(t *testing.T) {
	hasher := NewArgon2idHasher(testParams)

	cases := map[string]string{
		"empty":           "",
		"plaintext":       "admin123",
		"bcrypt":          "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
		"bad version":     "$argon2id$v=16$m=1024,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"bad params":      "$argon2id$v=19$m=x,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"zero params":     "$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"bad salt":        "$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5a2V5",
		"truncated":       "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHQ",
		"wrong algorithm": "$argon2i$v=19$m=1024,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"huge memory":     "$argon2id$v=19$m=4294967295,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"memory over cap": "$argon2id$v=19$m=1048577,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"huge iterations": "$argon2id$v=19$m=1024,t=4294967295,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"long salt":       "$argon2id$v=19$m=1024,t=1,p=1$" + strings.Repeat("c2FsdHNhbHQ", 10) + "$a2V5a2V5",
	}

	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			err := hasher.Compare("admin123", encoded)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedHash))
			assert.False(t, hasher.Verify("admin123", encoded))
		})
	}
}

func TestCompareMismatch(t *testing.T) {
	hasher := NewArgon2idHasher(testParams)
	encoded, err := hasher.Hash("admin123")
	require.NoError(t, err)

	assert.ErrorIs(t, hasher.Compare("wrong", encoded), ErrMismatch)
	assert.NoError(t, hasher.Compare("admin123", encoded))
}
