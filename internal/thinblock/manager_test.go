package thinblock

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/thinrelay/internal/test/factory"
	"github.com/tendermint/thinrelay/types"
)

func TestManagerBuildStubIdempotent(t *testing.T) {
	mgr, done, _ := newTestManager(t)
	block := factory.MakeBlock(1, 4)
	hash := block.BlockHash()
	stub := NewMerkleBlockStub(factory.MakeMerkleBlock(block), 0)

	s := NewSession(mgr, peerID(1))
	s.AssignTo(hash)
	require.False(t, mgr.IsStubBuilt(hash))

	complete, err := mgr.BuildStub(hash, stub, newTxSetLocator(block.Transactions[:1]))
	require.NoError(t, err)
	require.False(t, complete)
	require.True(t, mgr.IsStubBuilt(hash))
	require.Len(t, mgr.MissingHashes(hash), 3)

	require.False(t, mgr.Supply(hash, block.Transactions[1]))
	require.Len(t, mgr.MissingHashes(hash), 2)

	// A second announcement, even one that could fill everything, does
	// not reset progress.
	locator := newCountingLocator(block.Transactions...)
	complete, err = mgr.BuildStub(hash, stub, locator)
	require.NoError(t, err)
	require.False(t, complete)
	require.Zero(t, locator.calls)
	require.Len(t, mgr.MissingHashes(hash), 2)
	require.Empty(t, done.list)
}

func TestManagerCompletesExactlyOnce(t *testing.T) {
	mgr, done, idx := newTestManager(t)
	block := factory.MakeBlock(2, 3)
	hash := block.BlockHash()
	stub := NewMerkleBlockStub(factory.MakeMerkleBlock(block), 0)

	s1, s2 := NewSession(mgr, peerID(2)), NewSession(mgr, peerID(1))
	s1.AssignTo(hash)
	s2.AssignTo(hash)
	idx.MarkInFlight(s1.PeerID(), hash)
	idx.MarkInFlight(s2.PeerID(), hash)
	require.Equal(t, 2, mgr.PeerCount(hash))

	_, err := s1.BuildStub(stub, newTxSetLocator(block.Transactions[:2]))
	require.NoError(t, err)
	_, err = s2.BuildStub(stub, NullLocator)
	require.NoError(t, err)

	last := block.Transactions[2]
	require.False(t, s1.Supply(block.Transactions[0]))
	require.True(t, s2.Supply(last))
	require.False(t, s1.Supply(last))
	require.False(t, mgr.Supply(hash, last))

	require.Len(t, done.list, 1)
	requireSameBlock(t, block, done.list[0].block)
	require.Equal(t, []types.NodeID{peerID(1), peerID(2)}, done.list[0].contributors)

	require.Zero(t, mgr.Len())
	require.False(t, mgr.IsStubBuilt(hash))
	require.True(t, s1.IsAvailable())
	require.True(t, s2.IsAvailable())
	require.Empty(t, idx.PeersFor(hash))
}

func TestManagerStubNeedsNothing(t *testing.T) {
	mgr, done, _ := newTestManager(t)
	block := factory.MakeBlock(3, 5)
	hash := block.BlockHash()

	s := NewSession(mgr, peerID(1))
	s.AssignTo(hash)

	complete, err := s.BuildStub(NewMerkleBlockStub(factory.MakeMerkleBlock(block), 0),
		newTxSetLocator(block.Transactions))
	require.NoError(t, err)
	require.True(t, complete)
	require.Len(t, done.list, 1)
	require.Equal(t, []types.NodeID{peerID(1)}, done.list[0].contributors)
	require.True(t, s.IsAvailable())
	require.Zero(t, mgr.Len())
}

func TestManagerMalformedStub(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	block := factory.MakeBlock(4, 4)
	mb := factory.MakeMerkleBlock(block)
	mb.Header.MerkleRoot = chainhash.Hash{1}
	hash := mb.Header.BlockHash()

	s := NewSession(mgr, peerID(1))
	s.AssignTo(hash)

	_, err := s.BuildStub(NewMerkleBlockStub(mb, 0), NullLocator)
	require.ErrorIs(t, err, ErrMalformedProof)
	require.False(t, mgr.IsStubBuilt(hash))
	require.Equal(t, 1, mgr.Len())
}

func TestManagerDetach(t *testing.T) {
	mgr, done, idx := newTestManager(t)
	block := factory.MakeBlock(5, 4)
	hash := block.BlockHash()

	s1, s2 := NewSession(mgr, peerID(1)), NewSession(mgr, peerID(2))
	s1.AssignTo(hash)
	s2.AssignTo(hash)
	idx.MarkInFlight(s1.PeerID(), hash)
	idx.MarkInFlight(s2.PeerID(), hash)

	_, err := s1.BuildStub(NewMerkleBlockStub(factory.MakeMerkleBlock(block), 0), NullLocator)
	require.NoError(t, err)

	s1.Release()
	require.Equal(t, 1, mgr.PeerCount(hash))
	require.False(t, idx.IsInFlight(s1.PeerID(), hash))
	require.True(t, idx.IsInFlight(s2.PeerID(), hash))
	require.True(t, mgr.IsStubBuilt(hash))

	// detaching an available session is a no-op
	mgr.Detach(s1)
	require.Equal(t, 1, mgr.PeerCount(hash))

	s2.Release()
	require.Zero(t, mgr.PeerCount(hash))
	require.Zero(t, mgr.Len())
	require.False(t, mgr.IsStubBuilt(hash))
	require.Empty(t, done.list)
}

func TestManagerRemoveIfExists(t *testing.T) {
	mgr, done, _ := newTestManager(t)
	block := factory.MakeBlock(6, 2)
	hash := block.BlockHash()

	// removing an untracked block is a no-op
	mgr.RemoveIfExists(hash)

	sessions := []*Session{
		NewSession(mgr, peerID(1)),
		NewSession(mgr, peerID(2)),
		NewSession(mgr, peerID(3)),
	}
	for _, s := range sessions {
		s.AssignTo(hash)
	}

	mgr.RemoveIfExists(hash)
	require.Zero(t, mgr.Len())
	for _, s := range sessions {
		require.True(t, s.IsAvailable())
	}
	require.Empty(t, done.list)
}

func TestManagerMisuse(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	block := factory.MakeBlock(7, 2)
	other := factory.MakeBlock(8, 2)
	hash := block.BlockHash()
	stub := NewMerkleBlockStub(factory.MakeMerkleBlock(block), 0)

	require.Panics(t, func() { _, _ = mgr.BuildStub(hash, stub, NullLocator) })

	s := NewSession(mgr, peerID(1))
	s.AssignTo(other.BlockHash())
	require.Panics(t, func() { _, _ = mgr.BuildStub(other.BlockHash(), stub, NullLocator) })
	require.Panics(t, func() { mgr.MissingHashes(other.BlockHash()) })

	// supplying to an untracked or unbuilt block is ignored
	require.False(t, mgr.Supply(hash, block.Transactions[0]))
	require.False(t, mgr.Supply(other.BlockHash(), other.Transactions[0]))
}
