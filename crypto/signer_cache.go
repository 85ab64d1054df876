// signer_cache.go caches recovered signers for (hash, signature) pairs so
// that a transaction validated when it enters the operator's current block
// is not recovered again when the block is inserted.
package crypto

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

// DefaultSignerCacheSize is used when a non-positive capacity is requested.
const DefaultSignerCacheSize = 4096

// SignerCacheStats holds hit/miss statistics for a SignerCache.
type SignerCacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// SignerCache is a thread-safe LRU of recovered signer addresses keyed by
// keccak256(hash || sig). Failed recoveries are not cached.
type SignerCache struct {
	cache  *lru.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewSignerCache creates a cache holding up to capacity entries.
func NewSignerCache(capacity int) *SignerCache {
	if capacity <= 0 {
		capacity = DefaultSignerCacheSize
	}
	// lru.New only fails for non-positive sizes.
	c, _ := lru.New(capacity)
	return &SignerCache{cache: c}
}

func signerCacheKey(hash common.Hash, sig Signature) common.Hash {
	return Keccak256Hash(hash[:], sig[:])
}

// Recover returns the signer of sig over hash, consulting the cache first.
// A nil cache falls through to GetSigner.
func (c *SignerCache) Recover(hash common.Hash, sig Signature) (common.Address, error) {
	if c == nil {
		return GetSigner(hash, sig)
	}
	key := signerCacheKey(hash, sig)
	if v, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return v.(common.Address), nil
	}
	c.misses.Add(1)

	addr, err := GetSigner(hash, sig)
	if err != nil {
		return common.Address{}, err
	}
	c.cache.Add(key, addr)
	return addr, nil
}

// Len returns the number of cached entries.
func (c *SignerCache) Len() int { return c.cache.Len() }

// Purge drops every entry and resets the counters.
func (c *SignerCache) Purge() {
	c.cache.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns a snapshot of the cache statistics.
func (c *SignerCache) Stats() SignerCacheStats {
	return SignerCacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.cache.Len(),
	}
}
