package factory

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/btcsuite/btcutil/bloom"

	"github.com/tendermint/thinrelay/crypto/merkle"
)

// MakeBlock returns a block with numTxs transactions whose header commits to
// them. Blocks built from different seeds have different hashes.
func MakeBlock(seed, numTxs int) *wire.MsgBlock {
	var prev chainhash.Hash
	prev[0] = byte(seed)
	prev[1] = byte(seed >> 8)

	txs := MakeTxs(seed*10000, numTxs)
	header := wire.NewBlockHeader(1, &prev, &chainhash.Hash{}, 0x207fffff, uint32(seed))
	header.Timestamp = time.Unix(1600000000+int64(seed), 0)
	header.MerkleRoot = merkle.Root(txs)

	block := wire.NewMsgBlock(header)
	for _, tx := range txs {
		if err := block.AddTransaction(tx); err != nil {
			panic(err)
		}
	}
	return block
}

// MakeMerkleBlock returns the merkleblock a peer sends for block when asked
// with a filter matching every transaction.
func MakeMerkleBlock(block *wire.MsgBlock) *wire.MsgMerkleBlock {
	all := make([]int, len(block.Transactions))
	for i := range all {
		all[i] = i
	}
	return MakePartialMerkleBlock(block, all...)
}

// MakePartialMerkleBlock returns a merkleblock for block matching only the
// transactions at the given indexes.
func MakePartialMerkleBlock(block *wire.MsgBlock, indexes ...int) *wire.MsgMerkleBlock {
	filter := bloom.NewFilter(uint32(len(indexes)+1), 0, 0.000001, wire.BloomUpdateNone)
	for _, i := range indexes {
		h := block.Transactions[i].TxHash()
		filter.AddHash(&h)
	}

	mb, _ := bloom.NewMerkleBlock(btcutil.NewBlock(block), filter)
	return mb
}
