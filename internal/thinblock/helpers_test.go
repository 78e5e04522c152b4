package thinblock

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/tendermint/thinrelay/internal/inflight"
	"github.com/tendermint/thinrelay/libs/log"
	"github.com/tendermint/thinrelay/types"
)

func peerID(i int) types.NodeID {
	return types.NodeID(fmt.Sprintf("10.0.0.%d:8333", i))
}

type completion struct {
	block        *wire.MsgBlock
	contributors []types.NodeID
}

type completions struct {
	list []completion
}

func (c *completions) record(block *wire.MsgBlock, contributors []types.NodeID) {
	c.list = append(c.list, completion{block: block, contributors: contributors})
}

func newTestManager(t *testing.T) (*Manager, *completions, *inflight.Index) {
	t.Helper()

	done := &completions{}
	idx := inflight.NewIndex()
	return NewManager(log.NewNopLogger(), done.record, idx), done, idx
}

// countingLocator finds the transactions it holds and counts lookups.
type countingLocator struct {
	txs   txSetLocator
	calls int
}

func newCountingLocator(txs ...*wire.MsgTx) *countingLocator {
	return &countingLocator{txs: newTxSetLocator(txs)}
}

func (l *countingLocator) FindTx(hash *chainhash.Hash) *wire.MsgTx {
	l.calls++
	return l.txs.FindTx(hash)
}

// fakeStub is a Stub with an arbitrary transaction list.
type fakeStub struct {
	header   wire.BlockHeader
	hashes   []chainhash.Hash
	provided []*wire.MsgTx
	err      error
}

func (s *fakeStub) Header() *wire.BlockHeader { return &s.header }

func (s *fakeStub) TxHashes() ([]chainhash.Hash, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hashes, nil
}

func (s *fakeStub) Provided() []*wire.MsgTx { return s.provided }
