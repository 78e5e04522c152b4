package merkle_test

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/thinrelay/crypto/merkle"
	"github.com/tendermint/thinrelay/internal/test/factory"
)

func TestExtractMatchesAllTransactions(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 16, 33} {
		block := factory.MakeBlock(n, n)
		mb := factory.MakeMerkleBlock(block)

		root, matches, err := merkle.ExtractMatches(mb, merkle.DefaultMaxTransactions)
		require.NoError(t, err, "txs=%d", n)
		assert.Equal(t, block.Header.MerkleRoot, root, "txs=%d", n)
		assert.Equal(t, factory.TxHashes(block.Transactions), matches, "txs=%d", n)
	}
}

func TestExtractMatchesSubset(t *testing.T) {
	block := factory.MakeBlock(1, 10)
	mb := factory.MakePartialMerkleBlock(block, 2, 7)

	root, matches, err := merkle.ExtractMatches(mb, merkle.DefaultMaxTransactions)
	require.NoError(t, err)
	require.Equal(t, block.Header.MerkleRoot, root)
	require.Equal(t, []chainhash.Hash{
		block.Transactions[2].TxHash(),
		block.Transactions[7].TxHash(),
	}, matches)
}

func TestExtractMatchesMalformed(t *testing.T) {
	h := factory.MakeTx(1).TxHash()
	block := factory.MakeBlock(4, 4)

	testCases := []struct {
		name    string
		mutate  func(mb *wire.MsgMerkleBlock)
		wantErr error
	}{
		{
			"no transactions",
			func(mb *wire.MsgMerkleBlock) { mb.Transactions = 0 },
			merkle.ErrNoTransactions,
		},
		{
			"more hashes than transactions",
			func(mb *wire.MsgMerkleBlock) { mb.Hashes = append(mb.Hashes, &h) },
			merkle.ErrTooManyHashes,
		},
		{
			"fewer flag bits than hashes",
			func(mb *wire.MsgMerkleBlock) { mb.Flags = nil },
			merkle.ErrTooFewFlagBits,
		},
		{
			"trailing flag byte",
			func(mb *wire.MsgMerkleBlock) { mb.Flags = append(mb.Flags, 0) },
			merkle.ErrUnusedData,
		},
		{
			"missing hash",
			func(mb *wire.MsgMerkleBlock) { mb.Hashes = mb.Hashes[:len(mb.Hashes)-1] },
			merkle.ErrOverflow,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mb := factory.MakeMerkleBlock(block)
			tc.mutate(mb)

			_, _, err := merkle.ExtractMatches(mb, merkle.DefaultMaxTransactions)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestExtractMatchesTooManyTransactions(t *testing.T) {
	mb := factory.MakeMerkleBlock(factory.MakeBlock(1, 5))

	_, _, err := merkle.ExtractMatches(mb, 4)
	require.Error(t, err)

	_, _, err = merkle.ExtractMatches(mb, 0)
	require.NoError(t, err)
}

func TestExtractMatchesDuplicateBranch(t *testing.T) {
	h := factory.MakeTx(9).TxHash()
	mb := &wire.MsgMerkleBlock{
		Transactions: 2,
		Hashes:       []*chainhash.Hash{&h, &h},
		Flags:        []byte{0x07},
	}

	_, _, err := merkle.ExtractMatches(mb, merkle.DefaultMaxTransactions)
	require.ErrorIs(t, err, merkle.ErrDuplicateBranch)
}

func TestRoot(t *testing.T) {
	require.Equal(t, chainhash.Hash{}, merkle.Root(nil))

	tx := factory.MakeTx(1)
	require.Equal(t, tx.TxHash(), merkle.Root([]*wire.MsgTx{tx}))

	txs := factory.MakeTxs(1, 2)
	left, right := txs[0].TxHash(), txs[1].TxHash()
	require.Equal(t, merkle.HashNodes(&left, &right), merkle.Root(txs))
}
