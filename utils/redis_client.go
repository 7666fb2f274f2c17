package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/inkwell/config"
)

var (
	redisClient *redis.Client
	redisMu     sync.RWMutex
)

// InitRedis connects the shared client when Redis is enabled. A failed ping is returned so
// the caller can decide whether to continue without Redis.
func InitRedis(cfg config.RedisSection) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	SetRedis(rc)
	return rc, nil
}

// SetRedis installs the shared client. Passing nil disables Redis-backed helpers.
func SetRedis(rc *redis.Client) {
	redisMu.Lock()
	redisClient = rc
	redisMu.Unlock()
}

// GetRedis returns the shared client, or nil when Redis is not in use.
func GetRedis() *redis.Client {
	redisMu.RLock()
	defer redisMu.RUnlock()
	return redisClient
}
