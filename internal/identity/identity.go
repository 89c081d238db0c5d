// Package identity holds the configured identity answers the session
// replies with once authenticated, and the per-challenge hash cache
// used to bind each reply to its challenge token.
package identity

import (
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/dshivanandham/exasol-pow-client/internal/hashutil"
)

// Answers is the record of identity answers supplied by the embedding
// program at construction. The core never hard-codes these values
// (spec.md §4.3's command table).
type Answers struct {
	FullName     string
	MailCount    string
	Email        string
	Skype        string
	Birthdate    string
	Country      string
	AddrCount    string
	AddrLine1    string
	AddrLine2    string
}

// HashCache memoizes hex_sha1(authdata||challenge) per challenge token
// seen in a session. Challenge tokens aren't reused by a well-behaved
// server, but a session may see the same verb retried (property 8's
// "replying twice to the same command yields byte-identical replies");
// the cache makes repeats free instead of re-hashing.
type HashCache struct {
	c *cache.Cache
}

// NewHashCache builds a cache scoped to one session's lifetime: entries
// never need to expire before the session ends, so there is no
// sweep interval and no fixed entry TTL beyond NoExpiration.
func NewHashCache() *HashCache {
	return &HashCache{c: cache.New(cache.NoExpiration, 0)}
}

// Hash returns hex_sha1(authdata||challenge), computing and caching it
// on first use for this (authdata, challenge) pair.
func (hc *HashCache) Hash(authdata, challenge string) string {
	key := authdata + "\x00" + challenge
	if v, ok := hc.c.Get(key); ok {
		return v.(string)
	}
	h := hashutil.HexString(authdata + challenge)
	hc.c.Set(key, h, time.Duration(0))
	return h
}
