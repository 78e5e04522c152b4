package merkle

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// DefaultMaxTransactions bounds the transaction count a partial merkle tree
// may claim before traversal is attempted.
const DefaultMaxTransactions = 50000

var (
	ErrNoTransactions  = errors.New("partial merkle tree has no transactions")
	ErrTooManyHashes   = errors.New("more hashes than transactions")
	ErrTooFewFlagBits  = errors.New("fewer flag bits than hashes")
	ErrOverflow        = errors.New("traversal consumed more bits or hashes than provided")
	ErrUnusedData      = errors.New("not all flag bits or hashes were consumed")
	ErrDuplicateBranch = errors.New("identical left and right branches")
)

// ExtractMatches walks the partial merkle tree carried by a merkleblock
// message (BIP37) and returns the merkle root it commits to along with the
// hashes of the matched transactions, in block order.
//
// The returned root is not compared with the header; callers decide how a
// mismatch is treated.
func ExtractMatches(msg *wire.MsgMerkleBlock, maxTxs uint32) (chainhash.Hash, []chainhash.Hash, error) {
	if msg.Transactions == 0 {
		return chainhash.Hash{}, nil, ErrNoTransactions
	}
	if maxTxs > 0 && msg.Transactions > maxTxs {
		return chainhash.Hash{}, nil, fmt.Errorf("partial merkle tree claims %d transactions, max %d",
			msg.Transactions, maxTxs)
	}
	if uint32(len(msg.Hashes)) > msg.Transactions {
		return chainhash.Hash{}, nil, ErrTooManyHashes
	}
	if len(msg.Flags)*8 < len(msg.Hashes) {
		return chainhash.Hash{}, nil, ErrTooFewFlagBits
	}

	var height uint32
	for treeWidth(msg.Transactions, height) > 1 {
		height++
	}

	tr := &traversal{
		numTx:  msg.Transactions,
		hashes: msg.Hashes,
		flags:  msg.Flags,
	}
	root, err := tr.extract(height, 0)
	if err != nil {
		return chainhash.Hash{}, nil, err
	}

	if (tr.bitsUsed+7)/8 != len(msg.Flags) || tr.hashUsed != len(msg.Hashes) {
		return chainhash.Hash{}, nil, ErrUnusedData
	}

	return root, tr.matches, nil
}

type traversal struct {
	numTx  uint32
	hashes []*chainhash.Hash
	flags  []byte

	bitsUsed int
	hashUsed int
	matches  []chainhash.Hash
}

func (tr *traversal) nextBit() (bool, error) {
	if tr.bitsUsed >= len(tr.flags)*8 {
		return false, ErrOverflow
	}
	bit := tr.flags[tr.bitsUsed/8]&(1<<uint(tr.bitsUsed%8)) != 0
	tr.bitsUsed++
	return bit, nil
}

func (tr *traversal) nextHash() (chainhash.Hash, error) {
	if tr.hashUsed >= len(tr.hashes) || tr.hashes[tr.hashUsed] == nil {
		return chainhash.Hash{}, ErrOverflow
	}
	h := *tr.hashes[tr.hashUsed]
	tr.hashUsed++
	return h, nil
}

func (tr *traversal) extract(height, pos uint32) (chainhash.Hash, error) {
	parentOfMatch, err := tr.nextBit()
	if err != nil {
		return chainhash.Hash{}, err
	}

	if height == 0 || !parentOfMatch {
		h, err := tr.nextHash()
		if err != nil {
			return chainhash.Hash{}, err
		}
		if height == 0 && parentOfMatch {
			tr.matches = append(tr.matches, h)
		}
		return h, nil
	}

	left, err := tr.extract(height-1, pos*2)
	if err != nil {
		return chainhash.Hash{}, err
	}

	right := left
	if pos*2+1 < treeWidth(tr.numTx, height-1) {
		right, err = tr.extract(height-1, pos*2+1)
		if err != nil {
			return chainhash.Hash{}, err
		}
		// CVE-2012-2459: a tree where both branches are the same hash
		// can be used to forge a different transaction list under the
		// same root.
		if right == left {
			return chainhash.Hash{}, ErrDuplicateBranch
		}
	}

	return HashNodes(&left, &right), nil
}

// treeWidth returns the number of nodes at the given height of a tree built
// over numTx leaves.
func treeWidth(numTx, height uint32) uint32 {
	return (numTx + (1 << height) - 1) >> height
}

// HashNodes returns the double-SHA256 of left||right.
func HashNodes(left, right *chainhash.Hash) chainhash.Hash {
	var buf [chainhash.HashSize * 2]byte
	copy(buf[:chainhash.HashSize], left[:])
	copy(buf[chainhash.HashSize:], right[:])
	return chainhash.DoubleHashH(buf[:])
}
