package main

import (
	"context"
	"fmt"

	"github.com/oriys/songcache/internal/cache"
	"github.com/oriys/songcache/internal/config"
	"github.com/oriys/songcache/internal/logging"
	"github.com/oriys/songcache/internal/store"
)

func openStore(ctx context.Context, cfg *config.Config) (store.SongStore, error) {
	switch cfg.Store.Backend {
	case "memory":
		logging.Op().Warn("using in-memory song store; data is lost on restart")
		return store.NewMemoryStore(), nil
	case "postgres", "":
		s, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewInMemoryCache(), nil
	case "redis", "":
		return openRedisCache(ctx, cfg)
	case "tiered":
		l2, err := openRedisCache(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return cache.NewTieredCache(cache.NewInMemoryCache(), l2, cfg.Cache.L1TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func openRedisCache(ctx context.Context, cfg *config.Config) (*cache.RedisCache, error) {
	rc := cache.RedisCacheConfig{
		Addr:         cfg.Redis.Addr,
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		KeyPrefix:    cfg.Redis.KeyPrefix,
		TLS:          cfg.Redis.TLS,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}

	if iam := cfg.Redis.IAMAuth; iam.Enabled {
		gen, err := cache.NewIAMTokenGenerator(ctx, cache.IAMAuthConfig{
			CacheName:       iam.CacheName,
			User:            iam.User,
			Region:          iam.Region,
			AccessKeyID:     iam.AccessKeyID,
			SecretAccessKey: iam.SecretAccessKey,
			SessionToken:    iam.SessionToken,
		})
		if err != nil {
			return nil, fmt.Errorf("init elasticache iam auth: %w", err)
		}
		rc.CredentialsProvider = gen.CredentialsProvider()
		// IAM auth is only accepted over TLS.
		rc.TLS = true
		logging.Op().Info("redis IAM authentication enabled", "cache_name", iam.CacheName, "user", iam.User)
	}

	return cache.NewRedisCache(rc), nil
}
