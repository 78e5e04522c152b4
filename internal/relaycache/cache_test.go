package relaycache

import (
	"context"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/thinrelay/config"
	"github.com/tendermint/thinrelay/internal/test/factory"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T, size int) (*Cache, *fakeClock) {
	t.Helper()

	clock := &fakeClock{t: time.Unix(1600000000, 0)}
	cfg := config.TestRelayCacheConfig()
	cfg.Size = size
	cfg.Timeout = 15 * time.Minute

	c, err := New(cfg, WithClock(clock.now))
	require.NoError(t, err)
	return c, clock
}

func TestCacheInsertFind(t *testing.T) {
	c, _ := newTestCache(t, 10)
	tx := factory.MakeTx(1)
	hash := tx.TxHash()

	require.Nil(t, c.FindTx(&hash))
	c.Insert(tx)
	require.Equal(t, tx, c.FindTx(&hash))
	require.Equal(t, 1, c.Len())

	c.Insert(tx)
	require.Equal(t, 1, c.Len())
}

func TestCacheExpiry(t *testing.T) {
	c, clock := newTestCache(t, 10)
	txs := factory.MakeTxs(1, 3)

	c.Insert(txs[0])
	clock.advance(5 * time.Minute)
	c.Insert(txs[1])
	clock.advance(5 * time.Minute)
	c.Insert(txs[2])

	// Re-inserting refreshes the expiry.
	clock.advance(time.Minute)
	c.Insert(txs[0])

	clock.advance(9 * time.Minute) // t = 20m
	h1 := txs[1].TxHash()
	require.Nil(t, c.FindTx(&h1), "expired entries are not returned")
	require.Equal(t, 3, c.Len())

	require.Equal(t, 1, c.ExpireOld())
	require.Equal(t, 2, c.Len())

	h0, h2 := txs[0].TxHash(), txs[2].TxHash()
	require.NotNil(t, c.FindTx(&h0))
	require.NotNil(t, c.FindTx(&h2))

	clock.advance(time.Hour)
	require.Equal(t, 2, c.ExpireOld())
	require.Zero(t, c.Len())
	require.Zero(t, c.ExpireOld())
}

func TestCacheBounded(t *testing.T) {
	c, _ := newTestCache(t, 2)
	txs := factory.MakeTxs(1, 3)
	for _, tx := range txs {
		c.Insert(tx)
	}

	require.Equal(t, 2, c.Len())
	h0 := txs[0].TxHash()
	require.Nil(t, c.FindTx(&h0))
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := config.TestRelayCacheConfig()
	cfg.Size = 0
	_, err := New(cfg)
	require.Error(t, err)
}

func TestCacheRun(t *testing.T) {
	defer leaktest.Check(t)()

	cfg := config.TestRelayCacheConfig()
	cfg.Timeout = time.Millisecond
	c, err := New(cfg)
	require.NoError(t, err)

	c.Insert(factory.MakeTx(1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, 10*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
}
