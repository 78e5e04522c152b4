package thinblock

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Probe tracks the ping sent to a peer after a thin block request. The
// matching pong marks the point where the peer has sent everything it meant
// to send for the block.
//
// A zero nonce means no probe is outstanding.
type Probe struct {
	nonce uint64
	block chainhash.Hash

	randUint64 func() (uint64, error)
}

// NewProbe returns a probe with no ping outstanding.
func NewProbe() *Probe {
	return &Probe{randUint64: wire.RandomUint64}
}

// Arm starts a new probe for block and returns its random, non-zero nonce.
func (p *Probe) Arm(block chainhash.Hash) (uint64, error) {
	var nonce uint64
	for nonce == 0 {
		n, err := p.randUint64()
		if err != nil {
			return 0, fmt.Errorf("generating ping nonce: %w", err)
		}
		nonce = n
	}
	p.nonce = nonce
	p.block = block
	return nonce, nil
}

// Nonce returns the outstanding nonce, or 0.
func (p *Probe) Nonce() uint64 { return p.nonce }

// Block returns the block the outstanding probe was armed for.
func (p *Probe) Block() chainhash.Hash { return p.block }

// Outstanding reports whether a ping is awaiting its pong.
func (p *Probe) Outstanding() bool { return p.nonce != 0 }

// Matches reports whether nonce answers the outstanding ping.
func (p *Probe) Matches(nonce uint64) bool {
	return nonce != 0 && nonce == p.nonce
}

// Clear forgets the outstanding ping.
func (p *Probe) Clear() {
	p.nonce = 0
	p.block = chainhash.Hash{}
}
