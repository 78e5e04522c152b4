package thinblock

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/tendermint/thinrelay/types"
)

// Session is a single peer's participation in downloading thin blocks. A
// session works on at most one block at a time; a session that works on no
// block is available.
type Session struct {
	mgr  *Manager
	peer types.NodeID

	block        *chainhash.Hash
	reRequesting bool
}

// NewSession returns an available session for peer.
func NewSession(mgr *Manager, peer types.NodeID) *Session {
	return &Session{mgr: mgr, peer: peer}
}

// PeerID returns the peer this session downloads from.
func (s *Session) PeerID() types.NodeID { return s.peer }

// BlockHash returns the block being worked on, or the zero hash if the
// session is available.
func (s *Session) BlockHash() chainhash.Hash {
	if s.block == nil {
		return chainhash.Hash{}
	}
	return *s.block
}

// IsAvailable reports whether the session is not working on any block.
func (s *Session) IsAvailable() bool { return s.block == nil }

// AssignTo sets the session to work on hash, leaving any block it was
// working on before. Re-assigning the current block is a no-op.
func (s *Session) AssignTo(hash chainhash.Hash) {
	if hash == (chainhash.Hash{}) {
		panic("thinblock: assigning session to zero block hash")
	}
	if s.block != nil && *s.block == hash {
		return
	}

	s.mgr.Detach(s)
	s.block = &hash
	s.reRequesting = false
	s.mgr.Attach(hash, s)
}

// Release makes the session available.
func (s *Session) Release() {
	if s.IsAvailable() {
		return
	}
	s.mgr.Detach(s)
	s.block = nil
	s.reRequesting = false
}

// MarkReRequesting records whether missing transactions have been
// re-requested from the peer.
func (s *Session) MarkReRequesting(r bool) {
	if r && s.IsAvailable() {
		panic(fmt.Sprintf("thinblock: marking available session %v as re-requesting", s.peer))
	}
	s.reRequesting = r
}

// IsReRequesting reports whether missing transactions have been
// re-requested from the peer.
func (s *Session) IsReRequesting() bool { return s.reRequesting }

// IsSoleContributor reports whether no other peer works on the same block.
func (s *Session) IsSoleContributor() bool {
	if s.IsAvailable() {
		return false
	}
	return s.mgr.PeerCount(*s.block) <= 1
}

// BuildStub builds the block being worked on from stub. See
// Manager.BuildStub.
func (s *Session) BuildStub(stub Stub, locator TxLocator) (bool, error) {
	s.mustBeWorking()
	return s.mgr.BuildStub(*s.block, stub, locator)
}

// IsStubBuilt reports whether the stub of the block being worked on was
// built.
func (s *Session) IsStubBuilt() bool {
	if s.IsAvailable() {
		return false
	}
	return s.mgr.IsStubBuilt(*s.block)
}

// Supply offers tx to the block being worked on and reports whether it
// completed the block. An available session ignores it.
func (s *Session) Supply(tx *wire.MsgTx) bool {
	if s.IsAvailable() {
		return false
	}
	return s.mgr.Supply(*s.block, tx)
}

// MissingHashes returns the transactions the block being worked on still
// misses.
func (s *Session) MissingHashes() []chainhash.Hash {
	s.mustBeWorking()
	return s.mgr.MissingHashes(*s.block)
}

// String implements fmt.Stringer.
func (s *Session) String() string {
	if s.IsAvailable() {
		return fmt.Sprintf("Session{%v available}", s.peer)
	}
	return fmt.Sprintf("Session{%v %v rereq:%v}", s.peer, s.block, s.reRequesting)
}

func (s *Session) mustBeWorking() {
	if s.IsAvailable() {
		panic(fmt.Sprintf("thinblock: session %v is not working on a block", s.peer))
	}
}
