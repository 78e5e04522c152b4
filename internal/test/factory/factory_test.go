package factory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tendermint/thinrelay/crypto/merkle"
)

func TestMakeBlock(t *testing.T) {
	b1 := MakeBlock(1, 5)
	b2 := MakeBlock(2, 5)

	require.Len(t, b1.Transactions, 5)
	require.NotEqual(t, b1.BlockHash(), b2.BlockHash())
	require.Equal(t, b1.Header.MerkleRoot, merkle.Root(b1.Transactions))
}

func TestMakeMerkleBlock(t *testing.T) {
	block := MakeBlock(3, 4)
	mb := MakeMerkleBlock(block)

	require.Equal(t, block.BlockHash(), mb.Header.BlockHash())
	require.EqualValues(t, 4, mb.Transactions)
	require.Len(t, mb.Hashes, 4)
}
