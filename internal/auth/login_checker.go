package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

var ErrNotLoggedIn = errors.New("not logged in")

const (
	// 512 KB is plenty for token -> session entries
	sessionCacheSize = 512 * 1024
	// cache entries expire well before the session TTL so that a
	// logout on another instance is picked up
	sessionCacheExpireSeconds = 60
)

// LoginChecker resolves a session token to the logged in username.
// A small in-process cache sits in front of redis to keep the hot
// path off the network.
type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
	cache       *freecache.Cache
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
		cache:       freecache.NewCache(sessionCacheSize),
	}
}

// GetLoggedUser returns the username behind the token, or
// ErrNotLoggedIn for unknown and expired sessions.
func (lc *LoginChecker) GetLoggedUser(ctx context.Context, token string) (string, error) {
	tokenKey := []byte(token)
	if sessionBytes, err := lc.cache.Get(tokenKey); err == nil {
		var session LoginSession
		if err := json.Unmarshal(sessionBytes, &session); err == nil {
			return session.Username, nil
		}
		// unreadable cache entry, fall through to redis
		lc.cache.Del(tokenKey)
	}

	sessionKey := sessionKeyPrefix + token
	cmd := lc.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotLoggedIn
		}
		return "", err
	}

	var session LoginSession
	if err := json.Unmarshal([]byte(cmd.Val()), &session); err != nil {
		return "", err
	}

	createdAt := time.Unix(session.CreatedAt, 0)
	if time.Since(createdAt) > lc.ttl {
		return "", ErrNotLoggedIn
	}

	if err := lc.cache.Set(tokenKey, []byte(cmd.Val()), sessionCacheExpireSeconds); err != nil {
		log.Tracef("login checker, cache session: %s", err)
	}

	return session.Username, nil
}
