package factory

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// MakeTx returns a deterministic transaction; distinct seeds give distinct
// hashes.
func MakeTx(seed int) *wire.MsgTx {
	var prev chainhash.Hash
	binary.LittleEndian.PutUint64(prev[:], uint64(seed)+1)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prev, uint32(seed)), []byte{0x51}, nil))
	tx.AddTxOut(wire.NewTxOut(int64(seed+1)*1000, []byte{0x51}))
	return tx
}

// MakeTxs returns n transactions starting at seed.
func MakeTxs(seed, n int) []*wire.MsgTx {
	txs := make([]*wire.MsgTx, n)
	for i := range txs {
		txs[i] = MakeTx(seed + i)
	}
	return txs
}

// TxHashes returns the hashes of txs in order.
func TxHashes(txs []*wire.MsgTx) []chainhash.Hash {
	hashes := make([]chainhash.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.TxHash()
	}
	return hashes
}
