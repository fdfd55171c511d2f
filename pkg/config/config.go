package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	appErrors "github.com/noah-isme/sma-admin-panel/pkg/errors"
	"github.com/noah-isme/sma-admin-panel/pkg/password"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Session store backends.
const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

// DefaultAdminPassword is the seed password used when ADMIN_PASSWORD is unset.
const DefaultAdminPassword = "admin123"

// MinSessionKeyLength is the shortest SESSION_KEY accepted for signing carriers.
const MinSessionKeyLength = 32

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	LoginPath string

	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	Hash     HashConfig
	Seed     SeedConfig
	CORS     CORSConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	QueryTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig covers both the server-side session rows and the cookie carrier.
type SessionConfig struct {
	Store           string
	Key             string
	TTL             time.Duration
	CookieName      string
	CookieMaxAge    time.Duration
	CookieSecure    bool
	CookieDomain    string
	RefreshIdentity bool
	PurgeSchedule   string
}

// HashConfig tunes argon2id and the hashing worker bound.
type HashConfig struct {
	Workers     int
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint32
}

// SeedConfig holds bootstrap account settings.
type SeedConfig struct {
	AdminPassword string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.LoginPath = v.GetString("LOGIN_PATH")

	cfg.Database = DatabaseConfig{
		URL:          v.GetString("DATABASE_URL"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		QueryTimeout: parseDuration(v.GetString("DB_QUERY_TIMEOUT"), 5*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Store:           strings.ToLower(v.GetString("SESSION_STORE")),
		Key:             v.GetString("SESSION_KEY"),
		TTL:             parseDuration(v.GetString("SESSION_TTL"), 7*24*time.Hour),
		CookieName:      v.GetString("SESSION_COOKIE_NAME"),
		CookieMaxAge:    parseDuration(v.GetString("SESSION_COOKIE_MAX_AGE"), 30*24*time.Hour),
		CookieSecure:    v.GetBool("SESSION_COOKIE_SECURE"),
		CookieDomain:    v.GetString("SESSION_COOKIE_DOMAIN"),
		RefreshIdentity: v.GetBool("SESSION_REFRESH_IDENTITY"),
		PurgeSchedule:   v.GetString("SESSION_PURGE_SCHEDULE"),
	}

	workers := v.GetInt("HASH_WORKERS")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	cfg.Hash = HashConfig{
		Workers:     workers,
		MemoryKiB:   v.GetUint32("HASH_MEMORY_KIB"),
		Iterations:  v.GetUint32("HASH_ITERATIONS"),
		Parallelism: v.GetUint32("HASH_PARALLELISM"),
	}

	adminPassword := v.GetString("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = DefaultAdminPassword
	}
	cfg.Seed = SeedConfig{AdminPassword: adminPassword}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

// Validate reports settings the process cannot start with.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Database.URL) == "" {
		problems = append(problems, "DATABASE_URL must be set")
	}
	switch c.Session.Store {
	case SessionStorePostgres, SessionStoreRedis:
	default:
		problems = append(problems, fmt.Sprintf("SESSION_STORE %q is not one of postgres, redis", c.Session.Store))
	}
	if c.Session.TTL <= 0 {
		problems = append(problems, "SESSION_TTL must be positive")
	}
	if c.Session.CookieMaxAge <= 0 {
		problems = append(problems, "SESSION_COOKIE_MAX_AGE must be positive")
	}
	if c.Session.CookieName == "" {
		problems = append(problems, "SESSION_COOKIE_NAME must not be empty")
	}
	if c.Hash.MemoryKiB == 0 || c.Hash.Iterations == 0 || c.Hash.Parallelism == 0 {
		problems = append(problems, "HASH_MEMORY_KIB, HASH_ITERATIONS and HASH_PARALLELISM must be positive")
	}
	if c.Hash.MemoryKiB > password.MaxMemoryKiB {
		problems = append(problems, fmt.Sprintf("HASH_MEMORY_KIB must not exceed %d", password.MaxMemoryKiB))
	}
	if c.Hash.Iterations > password.MaxIterations {
		problems = append(problems, fmt.Sprintf("HASH_ITERATIONS must not exceed %d", password.MaxIterations))
	}
	if c.Hash.Parallelism > math.MaxUint8 {
		problems = append(problems, fmt.Sprintf("HASH_PARALLELISM must not exceed %d", math.MaxUint8))
	}
	if len(problems) == 0 {
		return nil
	}
	return appErrors.Wrap(errors.New(strings.Join(problems, "; ")), appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, appErrors.ErrConfiguration.Message)
}

// UsesDefaultAdminPassword reports whether the seed account falls back to the well-known password.
func (c *Config) UsesDefaultAdminPassword() bool {
	return c.Seed.AdminPassword == DefaultAdminPassword
}

// SessionKeyStatus describes where the signing key came from.
type SessionKeyStatus int

const (
	SessionKeyConfigured SessionKeyStatus = iota
	SessionKeyMissing
	SessionKeyTooShort
)

// ResolveSessionKey returns the carrier signing key. A missing or short
// SESSION_KEY is replaced by a random 64-byte key; callers must warn that
// carriers will not survive a restart.
func (c *Config) ResolveSessionKey() ([]byte, SessionKeyStatus, error) {
	key := c.Session.Key
	if len(key) >= MinSessionKeyLength {
		return []byte(key), SessionKeyConfigured, nil
	}

	status := SessionKeyMissing
	if key != "" {
		status = SessionKeyTooShort
	}

	generated := make([]byte, 64)
	if _, err := rand.Read(generated); err != nil {
		return nil, status, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "failed to generate session key")
	}
	return generated, status, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("LOGIN_PATH", "/login")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_QUERY_TIMEOUT", "5s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_STORE", SessionStorePostgres)
	v.SetDefault("SESSION_KEY", "")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("SESSION_COOKIE_NAME", "webapp_session")
	v.SetDefault("SESSION_COOKIE_MAX_AGE", "720h")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_COOKIE_DOMAIN", "")
	v.SetDefault("SESSION_REFRESH_IDENTITY", false)
	v.SetDefault("SESSION_PURGE_SCHEDULE", "@hourly")

	v.SetDefault("HASH_WORKERS", 0)
	v.SetDefault("HASH_MEMORY_KIB", 19*1024)
	v.SetDefault("HASH_ITERATIONS", 2)
	v.SetDefault("HASH_PARALLELISM", 1)

	v.SetDefault("ADMIN_PASSWORD", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
