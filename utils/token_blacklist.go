package utils

import (
	"context"
	"sync"
	"time"
)

const blacklistPrefix = "jwt:blacklist:"

var (
	blacklist   = map[string]time.Time{}
	blacklistMu sync.Mutex
)

// BlacklistToken revokes a token until its natural expiration. Redis is used when
// available so every instance sees the logout.
func BlacklistToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, blacklistPrefix+token, "1", ttl).Err(); err == nil {
			return
		}
	}
	blacklistMu.Lock()
	blacklist[token] = expiresAt
	blacklistMu.Unlock()
}

// IsTokenBlacklisted checks if a token was revoked before natural expiration.
func IsTokenBlacklisted(token string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if n, err := rc.Exists(ctx, blacklistPrefix+token).Result(); err == nil && n > 0 {
			return true
		}
	}

	blacklistMu.Lock()
	defer blacklistMu.Unlock()
	exp, ok := blacklist[token]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(blacklist, token)
		return false
	}
	return true
}

// PurgeExpiredTokens drops in-memory entries whose token has expired.
func PurgeExpiredTokens() int {
	now := time.Now()
	blacklistMu.Lock()
	defer blacklistMu.Unlock()
	removed := 0
	for token, exp := range blacklist {
		if now.After(exp) {
			delete(blacklist, token)
			removed++
		}
	}
	return removed
}
