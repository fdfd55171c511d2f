package main

import (
	"context"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admin-panel/internal/repository"
	"github.com/noah-isme/sma-admin-panel/internal/service"
	"github.com/noah-isme/sma-admin-panel/pkg/cache"
	"github.com/noah-isme/sma-admin-panel/pkg/config"
	"github.com/noah-isme/sma-admin-panel/pkg/cookiesession"
	"github.com/noah-isme/sma-admin-panel/pkg/database"
	"github.com/noah-isme/sma-admin-panel/pkg/logger"
	"github.com/noah-isme/sma-admin-panel/pkg/password"
)

// app holds the process-wide dependencies shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *sqlx.DB
	redis   *redis.Client
	metrics *service.MetricsService
	hasher  *password.Pool
	cookies *cookiesession.Store

	sessions service.SessionStore
	auth     *service.AuthService
	users    *service.UserService
	seed     *service.SeedService
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logr, nil
}

// connect opens the configured stores and builds the app.
func connect(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*app, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Session.Store == config.SessionStoreRedis {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	a, err := buildApp(cfg, logr, db, redisClient)
	if err != nil {
		_ = db.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}
	return a, nil
}

// buildApp wires services without doing any I/O.
func buildApp(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client) (*app, error) {
	key, status, err := cfg.ResolveSessionKey()
	if err != nil {
		return nil, err
	}
	switch status {
	case config.SessionKeyMissing:
		logr.Warn("SESSION_KEY is not set; using a random key, sessions will not survive a restart")
	case config.SessionKeyTooShort:
		logr.Warn("SESSION_KEY is shorter than 32 bytes; using a random key, sessions will not survive a restart",
			zap.Int("min_length", config.MinSessionKeyLength))
	}

	cookies, err := cookiesession.NewStore(key, cookiesession.Options{
		Name:     cfg.Session.CookieName,
		Path:     "/",
		Domain:   cfg.Session.CookieDomain,
		MaxAge:   cfg.Session.CookieMaxAge,
		Secure:   cfg.Session.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	if err != nil {
		return nil, err
	}

	metrics := service.NewMetricsService()
	hasher := password.NewPool(password.NewArgon2idHasher(password.Params{
		MemoryKiB:   cfg.Hash.MemoryKiB,
		Iterations:  cfg.Hash.Iterations,
		Parallelism: uint8(cfg.Hash.Parallelism), // bounded by Validate
	}), cfg.Hash.Workers, metrics.ObservePasswordHash)

	timeout := cfg.Database.QueryTimeout
	userRepo := repository.NewUserRepository(db, timeout)
	roleRepo := repository.NewRoleRepository(db, timeout)

	var sessions service.SessionStore
	if redisClient != nil {
		sessions = repository.NewRedisSessionRepository(redisClient, timeout)
	} else {
		sessions = repository.NewSessionRepository(db, timeout)
	}

	return &app{
		cfg:      cfg,
		logger:   logr,
		db:       db,
		redis:    redisClient,
		metrics:  metrics,
		hasher:   hasher,
		cookies:  cookies,
		sessions: sessions,
		auth: service.NewAuthService(userRepo, sessions, hasher, metrics, logr, service.AuthConfig{
			SessionTTL:      cfg.Session.TTL,
			RefreshIdentity: cfg.Session.RefreshIdentity,
		}),
		users: service.NewUserService(userRepo, logr),
		seed: service.NewSeedService(roleRepo, userRepo, hasher, logr, service.SeedConfig{
			AdminPassword:   cfg.Seed.AdminPassword,
			InsecureDefault: cfg.UsesDefaultAdminPassword(),
		}),
	}, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.logger.Sync()
}
