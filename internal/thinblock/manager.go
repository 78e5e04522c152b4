package thinblock

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/tendermint/thinrelay/libs/log"
	"github.com/tendermint/thinrelay/types"
)

// CompletedFunc is called once for every reassembled block, with the peers
// that were working on it.
type CompletedFunc func(block *wire.MsgBlock, contributors []types.NodeID)

// InFlightTracker records which blocks have been requested from which peer.
type InFlightTracker interface {
	MarkInFlight(peer types.NodeID, hash chainhash.Hash)
	Erase(peer types.NodeID, hash chainhash.Hash)
	// Clear forgets every block requested from peer.
	Clear(peer types.NodeID)
}

type activeBuilder struct {
	assembler *Assembler // nil until a stub is built
	sessions  map[*Session]struct{}
}

// Manager tracks every block under reconstruction and the sessions working
// on it. A block is tracked from the first Attach until it completes or its
// last session detaches.
//
// Manager is not safe for concurrent use.
type Manager struct {
	logger     log.Logger
	metrics    *Metrics
	onComplete CompletedFunc
	inFlight   InFlightTracker

	builders map[chainhash.Hash]*activeBuilder
}

// ManagerOption sets an optional parameter on the Manager.
type ManagerOption func(*Manager)

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager returns a Manager reporting reassembled blocks to onComplete.
func NewManager(
	logger log.Logger,
	onComplete CompletedFunc,
	inFlight InFlightTracker,
	options ...ManagerOption,
) *Manager {
	m := &Manager{
		logger:     logger,
		metrics:    NopMetrics(),
		onComplete: onComplete,
		inFlight:   inFlight,
		builders:   make(map[chainhash.Hash]*activeBuilder),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Attach registers s as working on hash.
func (m *Manager) Attach(hash chainhash.Hash, s *Session) {
	b, ok := m.builders[hash]
	if !ok {
		b = &activeBuilder{sessions: make(map[*Session]struct{})}
		m.builders[hash] = b
		m.metrics.ActiveBlocks.Set(float64(len(m.builders)))
	}
	b.sessions[s] = struct{}{}
}

// Detach removes s from the block it is working on and clears the peer's
// in-flight marker for it. The block is abandoned when s was its last
// session.
func (m *Manager) Detach(s *Session) {
	if s.IsAvailable() {
		return
	}

	hash := s.BlockHash()
	b, ok := m.builders[hash]
	if !ok {
		return
	}
	if _, ok := b.sessions[s]; !ok {
		return
	}

	delete(b.sessions, s)
	m.inFlight.Erase(s.PeerID(), hash)

	if len(b.sessions) == 0 {
		if b.assembler != nil && !b.assembler.IsSealed() {
			m.logger.Debug("abandoning thin block", "block", hash,
				"missing", b.assembler.MissingCount())
		}
		m.remove(hash)
	}
}

// BuildStub builds the assembler for hash from stub. A block whose stub was
// already built is left untouched, so repeated announcements do not reset
// progress. It reports whether the block completed straight away.
func (m *Manager) BuildStub(hash chainhash.Hash, stub Stub, locator TxLocator) (bool, error) {
	b, ok := m.builders[hash]
	if !ok {
		panic(fmt.Sprintf("thinblock: building stub for untracked block %v", hash))
	}
	if h := stub.Header().BlockHash(); h != hash {
		panic(fmt.Sprintf("thinblock: stub for block %v built as %v", h, hash))
	}
	if b.assembler != nil {
		return false, nil
	}

	a := NewAssembler()
	if err := a.Build(stub, locator); err != nil {
		m.metrics.MalformedProofs.Add(1)
		return false, err
	}
	b.assembler = a

	m.metrics.MissingTxs.Observe(float64(a.MissingCount()))
	m.logger.Debug("built thin block stub", "block", hash,
		"missing", a.MissingCount(), "txs", a.NumTxs())

	if a.MissingCount() == 0 {
		m.finish(hash, b)
		return true, nil
	}
	return false, nil
}

// IsStubBuilt reports whether hash is tracked and its stub was built.
func (m *Manager) IsStubBuilt(hash chainhash.Hash) bool {
	b, ok := m.builders[hash]
	return ok && b.assembler != nil
}

// Supply offers tx to the block hash. It returns true if tx completed the
// block, in which case the completion callback has already run and the
// block is no longer tracked.
func (m *Manager) Supply(hash chainhash.Hash, tx *wire.MsgTx) bool {
	b, ok := m.builders[hash]
	if !ok || b.assembler == nil {
		return false
	}

	switch res := b.assembler.Supply(tx); res {
	case TxUnwanted:
		m.logger.Debug("tx does not belong to block", "tx", tx.TxHash(), "block", hash)
		return false
	case TxDuplicate:
		m.logger.Debug("already had tx", "tx", tx.TxHash(), "block", hash)
	case TxAdded:
		m.logger.Debug("added tx", "tx", tx.TxHash(), "block", hash)
	default:
		panic(fmt.Sprintf("thinblock: unknown add result %v", res))
	}

	if b.assembler.MissingCount() == 0 {
		m.finish(hash, b)
		return true
	}
	return false
}

// MissingHashes returns the transactions still missing from hash, in block
// order. The stub must have been built.
func (m *Manager) MissingHashes(hash chainhash.Hash) []chainhash.Hash {
	b, ok := m.builders[hash]
	if !ok || b.assembler == nil {
		panic(fmt.Sprintf("thinblock: no stub built for block %v", hash))
	}
	return b.assembler.MissingHashes()
}

// PeerCount returns the number of sessions working on hash.
func (m *Manager) PeerCount(hash chainhash.Hash) int {
	b, ok := m.builders[hash]
	if !ok {
		return 0
	}
	return len(b.sessions)
}

// RemoveIfExists releases every session working on hash and stops tracking
// it.
func (m *Manager) RemoveIfExists(hash chainhash.Hash) {
	b, ok := m.builders[hash]
	if !ok {
		return
	}

	// Release detaches, which mutates b.sessions.
	sessions := make([]*Session, 0, len(b.sessions))
	for s := range b.sessions {
		sessions = append(sessions, s)
	}
	for _, s := range sessions {
		s.Release()
	}
	m.remove(hash)
}

// Len returns the number of tracked blocks.
func (m *Manager) Len() int { return len(m.builders) }

func (m *Manager) finish(hash chainhash.Hash, b *activeBuilder) {
	block, err := b.assembler.Finish()
	if err != nil {
		panic(fmt.Sprintf("thinblock: finishing complete block %v: %v", hash, err))
	}

	contributors := make([]types.NodeID, 0, len(b.sessions))
	for s := range b.sessions {
		contributors = append(contributors, s.PeerID())
	}
	types.SortNodeIDs(contributors)

	m.logger.Info("reassembled thin block", "block", hash,
		"txs", len(block.Transactions), "contributors", len(contributors))
	m.metrics.BlocksReassembled.Add(1)

	// Stop tracking before the callback so it observes a settled Manager
	// and cannot reach the sealed assembler.
	m.RemoveIfExists(hash)
	m.onComplete(block, contributors)
}

func (m *Manager) remove(hash chainhash.Hash) {
	delete(m.builders, hash)
	m.metrics.ActiveBlocks.Set(float64(len(m.builders)))
}
