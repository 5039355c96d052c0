package testcache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	c "github.com/tamasbrandstadter/transfers-api/internal/cache"
)

// Open starts a miniredis server for the lifetime of t and returns a cache
// backed by it.
func Open(t *testing.T) (*c.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	r := redis.NewRing(&redis.RingOptions{
		Addrs: map[string]string{
			"server1": mr.Addr(),
		},
	})
	t.Cleanup(func() { _ = r.Close() })

	return c.FromRing(r), mr
}
