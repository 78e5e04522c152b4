package thinblock

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// AddResult classifies a transaction handed to an Assembler.
type AddResult int

const (
	// TxAdded means the transaction filled a missing slot.
	TxAdded AddResult = iota
	// TxUnwanted means the transaction is not part of the block.
	TxUnwanted
	// TxDuplicate means the transaction was already present.
	TxDuplicate
)

func (r AddResult) String() string {
	switch r {
	case TxAdded:
		return "added"
	case TxUnwanted:
		return "unwanted"
	case TxDuplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("AddResult(%d)", int(r))
	}
}

// Assembler holds the reconstruction state of a single block. Slots are
// addressed by transaction hash, so transactions may arrive in any order
// while the assembled block keeps the order committed to by the proof.
//
// An Assembler is built once, and once Finish succeeds it is sealed; using
// it afterwards panics.
type Assembler struct {
	header wire.BlockHeader
	built  bool
	sealed bool

	hashes  []chainhash.Hash
	txs     []*wire.MsgTx            // nil slot == missing
	index   map[chainhash.Hash][]int // hash -> slots holding it
	missing int
}

// NewAssembler returns an empty, unbuilt Assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Build derives the block's transaction list from stub and fills every slot
// the locator (or the stub's own transactions) can satisfy. A malformed stub
// is rejected before the locator is consulted and leaves the Assembler
// unbuilt.
func (a *Assembler) Build(stub Stub, locator TxLocator) error {
	if a.built {
		panic("thinblock: assembler already built")
	}

	hashes, err := stub.TxHashes()
	if err != nil {
		return err
	}

	if provided := stub.Provided(); len(provided) > 0 {
		locator = MultiLocator{newTxSetLocator(provided), locator}
	}

	a.header = *stub.Header()
	a.hashes = hashes
	a.txs = make([]*wire.MsgTx, len(hashes))
	a.index = make(map[chainhash.Hash][]int, len(hashes))
	a.missing = len(hashes)

	for i := range hashes {
		h := &hashes[i]
		a.index[*h] = append(a.index[*h], i)

		if tx := locator.FindTx(h); tx != nil {
			a.txs[i] = tx
			a.missing--
		}
	}

	a.built = true
	return nil
}

// Supply offers a transaction to the block.
func (a *Assembler) Supply(tx *wire.MsgTx) AddResult {
	a.mustBeMutable()
	if tx == nil {
		panic("thinblock: nil transaction supplied")
	}

	slots, ok := a.index[tx.TxHash()]
	if !ok {
		return TxUnwanted
	}

	res := TxDuplicate
	for _, i := range slots {
		if a.txs[i] == nil {
			a.txs[i] = tx
			a.missing--
			res = TxAdded
		}
	}
	return res
}

// MissingCount returns the number of transactions still missing.
func (a *Assembler) MissingCount() int {
	a.mustBeBuilt()
	return a.missing
}

// MissingHashes returns the hashes of the missing transactions in block
// order.
func (a *Assembler) MissingHashes() []chainhash.Hash {
	a.mustBeBuilt()

	missing := make([]chainhash.Hash, 0, a.missing)
	for i, tx := range a.txs {
		if tx == nil {
			missing = append(missing, a.hashes[i])
		}
	}
	if len(missing) != a.missing {
		panic(fmt.Sprintf("thinblock: missing count %d does not match %d empty slots", a.missing, len(missing)))
	}
	return missing
}

// Finish returns the assembled block and seals the Assembler. It fails with
// ErrIncomplete while transactions are missing.
func (a *Assembler) Finish() (*wire.MsgBlock, error) {
	a.mustBeMutable()

	if a.missing > 0 {
		return nil, fmt.Errorf("%w: %d of %d", ErrIncomplete, a.missing, len(a.hashes))
	}

	header := a.header
	block := wire.NewMsgBlock(&header)
	block.Transactions = make([]*wire.MsgTx, len(a.txs))
	copy(block.Transactions, a.txs)

	a.sealed = true
	a.txs = nil
	a.index = nil
	return block, nil
}

// IsBuilt reports whether Build succeeded.
func (a *Assembler) IsBuilt() bool { return a.built }

// IsSealed reports whether Finish succeeded.
func (a *Assembler) IsSealed() bool { return a.sealed }

// NumTxs returns the number of transactions in the block.
func (a *Assembler) NumTxs() int { return len(a.hashes) }

func (a *Assembler) mustBeBuilt() {
	if !a.built {
		panic("thinblock: assembler used before it was built")
	}
}

func (a *Assembler) mustBeMutable() {
	a.mustBeBuilt()
	if a.sealed {
		panic("thinblock: assembler used after it was sealed")
	}
}
