package thinblock

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// TxLocator finds transactions the node already holds (mempool, relay cache,
// other local stores). FindTx returns nil when the transaction is unknown.
// Implementations must not block.
type TxLocator interface {
	FindTx(hash *chainhash.Hash) *wire.MsgTx
}

// LocatorFunc adapts a function to a TxLocator.
type LocatorFunc func(hash *chainhash.Hash) *wire.MsgTx

func (f LocatorFunc) FindTx(hash *chainhash.Hash) *wire.MsgTx { return f(hash) }

// NullLocator never finds anything.
var NullLocator TxLocator = LocatorFunc(func(*chainhash.Hash) *wire.MsgTx { return nil })

// MultiLocator asks each locator in order and returns the first hit.
type MultiLocator []TxLocator

func (m MultiLocator) FindTx(hash *chainhash.Hash) *wire.MsgTx {
	for _, l := range m {
		if l == nil {
			continue
		}
		if tx := l.FindTx(hash); tx != nil {
			return tx
		}
	}
	return nil
}

// txSetLocator finds transactions shipped with an announcement.
type txSetLocator map[chainhash.Hash]*wire.MsgTx

func newTxSetLocator(txs []*wire.MsgTx) txSetLocator {
	set := make(txSetLocator, len(txs))
	for _, tx := range txs {
		set[tx.TxHash()] = tx
	}
	return set
}

func (s txSetLocator) FindTx(hash *chainhash.Hash) *wire.MsgTx { return s[*hash] }
