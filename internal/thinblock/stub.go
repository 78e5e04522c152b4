package thinblock

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/tendermint/thinrelay/crypto/merkle"
)

// Stub is a block announcement that authenticates the block's transaction
// list without carrying (all of) the transactions.
type Stub interface {
	// Header returns the announced block header.
	Header() *wire.BlockHeader

	// TxHashes returns every transaction hash of the block in block order.
	// It fails with an error matching ErrMalformedProof if the announcement
	// does not commit to the header's merkle root.
	TxHashes() ([]chainhash.Hash, error)

	// Provided returns transactions shipped along with the announcement.
	Provided() []*wire.MsgTx
}

// MerkleBlockStub is a Stub backed by a BIP37 merkleblock. The merkleblock
// must match every transaction of the block.
type MerkleBlockStub struct {
	msg    *wire.MsgMerkleBlock
	maxTxs uint32
}

var _ Stub = (*MerkleBlockStub)(nil)

// NewMerkleBlockStub wraps msg. maxTxs bounds the transaction count the
// merkleblock may claim; zero disables the bound.
func NewMerkleBlockStub(msg *wire.MsgMerkleBlock, maxTxs uint32) *MerkleBlockStub {
	return &MerkleBlockStub{msg: msg, maxTxs: maxTxs}
}

func (s *MerkleBlockStub) Header() *wire.BlockHeader { return &s.msg.Header }

func (s *MerkleBlockStub) TxHashes() ([]chainhash.Hash, error) {
	block := s.msg.Header.BlockHash()

	root, matches, err := merkle.ExtractMatches(s.msg, s.maxTxs)
	if err != nil {
		return nil, MalformedProofError{Block: block, Reason: err}
	}
	if root != s.msg.Header.MerkleRoot {
		return nil, MalformedProofError{
			Block:  block,
			Reason: fmt.Errorf("merkle root mismatch: header %v, proof %v", s.msg.Header.MerkleRoot, root),
		}
	}
	if uint32(len(matches)) != s.msg.Transactions {
		return nil, MalformedProofError{
			Block:  block,
			Reason: fmt.Errorf("proof matches %d of %d transactions", len(matches), s.msg.Transactions),
		}
	}

	return matches, nil
}

func (s *MerkleBlockStub) Provided() []*wire.MsgTx { return nil }

// ProvidedStub attaches transactions that arrived with an announcement to
// another Stub.
type ProvidedStub struct {
	Stub
	Txs []*wire.MsgTx
}

func (s ProvidedStub) Provided() []*wire.MsgTx { return s.Txs }
