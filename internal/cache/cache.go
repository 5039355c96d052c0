package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const localCacheSize = 10000

type Config struct {
	Host string
	Pass string
	Port int
}

type Redis struct {
	Client    *redis.Ring
	Transfers *cache.Cache
}

func NewConnection(cfg Config) (*Redis, error) {
	log.Info("connecting to redis")

	r := redis.NewRing(&redis.RingOptions{
		Addrs: map[string]string{
			"server1": fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		},
		HeartbeatFrequency: 10 * time.Second,
		Password:           cfg.Pass,
		MaxRetries:         3,
		MaxRetryBackoff:    3 * time.Second,
		ReadTimeout:        1 * time.Second,
		WriteTimeout:       1 * time.Second,
		PoolSize:           10,
		MinIdleConns:       1,
	})

	log.Info("verifying redis connection")

	if err := r.Ping(context.Background()).Err(); err != nil {
		_ = r.Close()
		return nil, errors.Wrap(err, "ping redis")
	}

	log.Info("verified redis connection")

	return FromRing(r), nil
}

// FromRing builds the transfers cache on top of an existing ring.
func FromRing(r *redis.Ring) *Redis {
	t := cache.New(&cache.Options{
		Redis:      r,
		LocalCache: cache.NewTinyLFU(localCacheSize, time.Minute),
	})

	log.Info("created transfers cache")

	return &Redis{
		Client:    r,
		Transfers: t,
	}
}

// NewLocal returns an in-process transfers cache for when no redis is configured.
func NewLocal(ttl time.Duration) *cache.Cache {
	return cache.New(&cache.Options{
		LocalCache: cache.NewTinyLFU(localCacheSize, ttl),
	})
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
