package database

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// NewMemcached builds the client used for the property record cache.
// Property records are immutable, so a lost cache entry only costs a
// database read.
func NewMemcached(server string) *memcache.Client {
	mc := memcache.New(server)
	mc.Timeout = 100 * time.Millisecond
	return mc
}
