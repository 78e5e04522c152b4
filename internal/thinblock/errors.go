package thinblock

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

var (
	// ErrMalformedProof is returned when an announcement's proof does not
	// authenticate the transaction list against the header.
	ErrMalformedProof = errors.New("malformed merkle proof")

	// ErrIncomplete is returned by Finish while transactions are missing.
	ErrIncomplete = errors.New("block is missing transactions")
)

// MalformedProofError carries the reason a proof for Block was rejected. It
// matches ErrMalformedProof with errors.Is.
type MalformedProofError struct {
	Block  chainhash.Hash
	Reason error
}

func (e MalformedProofError) Error() string {
	return fmt.Sprintf("malformed merkle proof for block %v: %v", e.Block, e.Reason)
}

func (e MalformedProofError) Unwrap() error { return e.Reason }

func (e MalformedProofError) Is(target error) bool { return target == ErrMalformedProof }
