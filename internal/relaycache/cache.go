// Package relaycache holds transactions recently relayed to the node, so
// that thin blocks can be reassembled from transactions that did not make it
// into (or already left) the node's other stores.
package relaycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/tendermint/thinrelay/config"
	"github.com/tendermint/thinrelay/libs/log"
)

type entry struct {
	tx      *wire.MsgTx
	expires time.Time
}

// Cache is a size bounded cache of relayed transactions. An entry expires
// Timeout after it was last inserted. Cache is safe for concurrent use.
type Cache struct {
	logger  log.Logger
	timeout time.Duration
	now     func() time.Time

	mtx sync.Mutex
	lru *simplelru.LRU[chainhash.Hash, entry]
}

// Option sets an optional parameter on the Cache.
type Option func(*Cache)

// WithClock replaces the clock used to expire entries.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// New returns an empty Cache configured by cfg.
func New(cfg *config.RelayCacheConfig, opts ...Option) (*Cache, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid relay cache config: %w", err)
	}

	l, err := simplelru.NewLRU[chainhash.Hash, entry](cfg.Size, nil)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		logger:  log.NewNopLogger(),
		timeout: cfg.Timeout,
		now:     time.Now,
		lru:     l,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Insert adds tx, or refreshes its expiry if it is already cached.
func (c *Cache) Insert(tx *wire.MsgTx) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.lru.Add(tx.TxHash(), entry{tx: tx, expires: c.now().Add(c.timeout)})
}

// FindTx returns the cached transaction with the given hash, or nil. Expired
// entries are not returned even before they are swept.
func (c *Cache) FindTx(hash *chainhash.Hash) *wire.MsgTx {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	e, ok := c.lru.Peek(*hash)
	if !ok || !c.now().Before(e.expires) {
		return nil
	}
	return e.tx
}

// ExpireOld removes every expired entry and returns how many were removed.
func (c *Cache) ExpireOld() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	now := c.now()
	removed := 0
	for {
		// Entries are ordered by last insertion, so expiry times are
		// ordered too.
		_, e, ok := c.lru.GetOldest()
		if !ok || now.Before(e.expires) {
			break
		}
		c.lru.RemoveOldest()
		removed++
	}
	return removed
}

// Len returns the number of cached entries, including expired ones not yet
// swept.
func (c *Cache) Len() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.lru.Len()
}

// Run sweeps expired entries every interval until ctx is canceled.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.ExpireOld(); n > 0 {
				c.logger.Debug("expired relayed transactions", "count", n, "remaining", c.Len())
			}
		}
	}
}
