package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-admin-panel/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/school")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SessionStorePostgres, cfg.Session.Store)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Session.CookieMaxAge)
	assert.Equal(t, "webapp_session", cfg.Session.CookieName)
	assert.Equal(t, "@hourly", cfg.Session.PurgeSchedule)
	assert.Equal(t, DefaultAdminPassword, cfg.Seed.AdminPassword)
	assert.True(t, cfg.UsesDefaultAdminPassword())
	assert.Equal(t, uint32(19*1024), cfg.Hash.MemoryKiB)
	assert.Equal(t, uint32(2), cfg.Hash.Iterations)
	assert.Equal(t, uint32(1), cfg.Hash.Parallelism)
	assert.Positive(t, cfg.Hash.Workers)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/school")
	t.Setenv("ADMIN_PASSWORD", "s3cret-seed")
	t.Setenv("SESSION_STORE", "REDIS")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("SESSION_REFRESH_IDENTITY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret-seed", cfg.Seed.AdminPassword)
	assert.False(t, cfg.UsesDefaultAdminPassword())
	assert.Equal(t, SessionStoreRedis, cfg.Session.Store)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.True(t, cfg.Session.RefreshIdentity)
}

func TestValidateMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_STORE", "memcached")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConfiguration))
	assert.True(t, strings.Contains(err.Error(), "DATABASE_URL"))
	assert.True(t, strings.Contains(err.Error(), "memcached"))
}

func TestValidateHashCostBounds(t *testing.T) {
	cases := map[string]struct {
		key, value, want string
	}{
		"parallelism wraps uint8": {"HASH_PARALLELISM", "257", "HASH_PARALLELISM"},
		"memory above cap":        {"HASH_MEMORY_KIB", "4194304", "HASH_MEMORY_KIB"},
		"iterations above cap":    {"HASH_ITERATIONS", "1000", "HASH_ITERATIONS"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/school")
			t.Setenv(tc.key, tc.value)

			cfg, err := Load()
			require.NoError(t, err)

			err = cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrConfiguration))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestResolveSessionKey(t *testing.T) {
	t.Run("configured", func(t *testing.T) {
		cfg := &Config{Session: SessionConfig{Key: strings.Repeat("k", MinSessionKeyLength)}}
		key, status, err := cfg.ResolveSessionKey()
		require.NoError(t, err)
		assert.Equal(t, SessionKeyConfigured, status)
		assert.Equal(t, []byte(cfg.Session.Key), key)
	})

	t.Run("too short", func(t *testing.T) {
		cfg := &Config{Session: SessionConfig{Key: "short"}}
		key, status, err := cfg.ResolveSessionKey()
		require.NoError(t, err)
		assert.Equal(t, SessionKeyTooShort, status)
		assert.Len(t, key, 64)
	})

	t.Run("missing", func(t *testing.T) {
		cfg := &Config{}
		first, status, err := cfg.ResolveSessionKey()
		require.NoError(t, err)
		assert.Equal(t, SessionKeyMissing, status)

		second, _, err := cfg.ResolveSessionKey()
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}
