package thinblock

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/thinrelay/internal/inflight"
	"github.com/tendermint/thinrelay/internal/test/factory"
	"github.com/tendermint/thinrelay/internal/thinblock/mocks"
	"github.com/tendermint/thinrelay/libs/log"
	"github.com/tendermint/thinrelay/types"
)

type arbiterFixture struct {
	mgr       *Manager
	done      *completions
	inFlight  *inflight.Index
	messenger *mocks.Messenger
	reporter  *mocks.MisbehaviorReporter
	arbiter   *Arbiter
}

func newArbiterFixture(t *testing.T) *arbiterFixture {
	t.Helper()

	mgr, done, idx := newTestManager(t)
	messenger := mocks.NewMessenger(t)
	reporter := mocks.NewMisbehaviorReporter(t)
	return &arbiterFixture{
		mgr:       mgr,
		done:      done,
		inFlight:  idx,
		messenger: messenger,
		reporter:  reporter,
		arbiter:   NewArbiter(log.NewNopLogger(), messenger, reporter, idx, NopMetrics()),
	}
}

// startDownload assigns a session for peer i to block, builds the stub from
// the first known transactions and arms a probe as the reactor would.
func (f *arbiterFixture) startDownload(t *testing.T, i int, block *wire.MsgBlock, known int) (*Session, *Probe, uint64) {
	t.Helper()

	s := NewSession(f.mgr, peerID(i))
	s.AssignTo(block.BlockHash())
	f.inFlight.MarkInFlight(s.PeerID(), block.BlockHash())

	_, err := s.BuildStub(NewMerkleBlockStub(factory.MakeMerkleBlock(block), 0),
		newTxSetLocator(block.Transactions[:known]))
	require.NoError(t, err)

	p := NewProbe()
	nonce, err := p.Arm(block.BlockHash())
	require.NoError(t, err)
	return s, p, nonce
}

func TestArbiterIgnoresZeroNonce(t *testing.T) {
	f := newArbiterFixture(t)
	block := factory.MakeBlock(1, 3)
	s, p, nonce := f.startDownload(t, 1, block, 1)

	require.Equal(t, OutcomeIgnored, f.arbiter.Conclude(p, 0, s))
	require.Equal(t, nonce, p.Nonce())
}

func TestArbiterFinished(t *testing.T) {
	f := newArbiterFixture(t)
	s := NewSession(f.mgr, peerID(1))
	p := NewProbe()
	nonce, err := p.Arm(chainhash.Hash{1})
	require.NoError(t, err)

	require.Equal(t, OutcomeFinished, f.arbiter.Conclude(p, nonce, s))
	require.False(t, p.Outstanding())
}

func TestArbiterIgnoresStalePong(t *testing.T) {
	f := newArbiterFixture(t)
	block := factory.MakeBlock(2, 3)
	s, p, nonce := f.startDownload(t, 1, block, 1)

	// wrong nonce
	require.Equal(t, OutcomeIgnored, f.arbiter.Conclude(p, nonce+1, s))
	require.Equal(t, nonce, p.Nonce())

	// probe armed for another block
	other, err := p.Arm(chainhash.Hash{9})
	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, f.arbiter.Conclude(p, other, s))
	require.Equal(t, other, p.Nonce())
	require.False(t, s.IsAvailable())
}

func TestArbiterSilentPeer(t *testing.T) {
	f := newArbiterFixture(t)
	block := factory.MakeBlock(3, 3)
	hash := block.BlockHash()

	s := NewSession(f.mgr, peerID(1))
	s.AssignTo(hash)
	p := NewProbe()
	nonce, err := p.Arm(hash)
	require.NoError(t, err)

	f.reporter.On("Misbehaving", peerID(1), MisbehaviorNoStub, mock.Anything).Once()

	require.Equal(t, OutcomeMisbehaving, f.arbiter.Conclude(p, nonce, s))
	require.True(t, s.IsAvailable())
	require.False(t, p.Outstanding())
	require.Zero(t, f.mgr.Len())
}

func TestArbiterTwoStrikesFallBack(t *testing.T) {
	f := newArbiterFixture(t)
	block := factory.MakeBlock(4, 5)
	hash := block.BlockHash()
	s, p, nonce := f.startDownload(t, 1, block, 2)
	missing := factory.TxHashes(block.Transactions[2:])

	f.messenger.On("RequestTxs", peerID(1), missing).Return(nil).Once()
	f.messenger.On("SendPing", peerID(1), mock.AnythingOfType("uint64")).Return(nil).Once()

	require.Equal(t, OutcomeReRequested, f.arbiter.Conclude(p, nonce, s))
	require.True(t, s.IsReRequesting())
	require.True(t, p.Outstanding())
	require.NotEqual(t, nonce, p.Nonce())
	require.Equal(t, hash, p.Block())

	// the old nonce no longer matches
	require.Equal(t, OutcomeIgnored, f.arbiter.Conclude(p, nonce, s))

	f.messenger.On("RequestBlock", peerID(1), hash).Return(nil).Once()

	require.Equal(t, OutcomeFellBack, f.arbiter.Conclude(p, p.Nonce(), s))
	require.True(t, s.IsAvailable())
	require.True(t, f.inFlight.IsInFlight(peerID(1), hash))
	require.Zero(t, f.mgr.Len())
	require.Empty(t, f.done.list)
}

func TestArbiterGiveUpWithOtherPeers(t *testing.T) {
	f := newArbiterFixture(t)
	block := factory.MakeBlock(5, 4)
	hash := block.BlockHash()

	s1, p1, n1 := f.startDownload(t, 1, block, 1)
	s2, p2, n2 := f.startDownload(t, 2, block, 1)

	f.messenger.On("RequestTxs", peerID(1), mock.Anything).Return(nil).Once()
	f.messenger.On("SendPing", peerID(1), mock.Anything).Return(nil).Once()
	require.Equal(t, OutcomeReRequested, f.arbiter.Conclude(p1, n1, s1))

	require.Equal(t, OutcomeGaveUp, f.arbiter.Conclude(p1, p1.Nonce(), s1))
	require.True(t, s1.IsAvailable())
	require.False(t, f.inFlight.IsInFlight(peerID(1), hash))
	require.Equal(t, 1, f.mgr.PeerCount(hash))
	require.True(t, s2.IsSoleContributor())

	f.messenger.AssertNotCalled(t, "RequestBlock", mock.Anything, mock.Anything)

	// the remaining peer gives up as well and downloads the full block
	f.messenger.On("RequestTxs", peerID(2), mock.Anything).Return(nil).Once()
	f.messenger.On("SendPing", peerID(2), mock.Anything).Return(nil).Once()
	require.Equal(t, OutcomeReRequested, f.arbiter.Conclude(p2, n2, s2))

	f.messenger.On("RequestBlock", peerID(2), hash).Return(nil).Once()
	require.Equal(t, OutcomeFellBack, f.arbiter.Conclude(p2, p2.Nonce(), s2))
	require.True(t, s2.IsAvailable())
	require.Zero(t, f.mgr.Len())

	f.messenger.AssertNumberOfCalls(t, "RequestBlock", 1)
	require.Equal(t, []types.NodeID{peerID(2)}, f.inFlight.PeersFor(hash))
	require.Empty(t, f.done.list)
}

func TestArbiterFollowUpCompletes(t *testing.T) {
	f := newArbiterFixture(t)
	block := factory.MakeBlock(6, 3)
	s, p, nonce := f.startDownload(t, 1, block, 1)

	f.messenger.On("RequestTxs", peerID(1), factory.TxHashes(block.Transactions[1:])).Return(nil).Once()
	f.messenger.On("SendPing", peerID(1), mock.Anything).Return(nil).Once()
	require.Equal(t, OutcomeReRequested, f.arbiter.Conclude(p, nonce, s))

	require.False(t, s.Supply(block.Transactions[1]))
	require.True(t, s.Supply(block.Transactions[2]))
	require.Len(t, f.done.list, 1)

	require.Equal(t, OutcomeFinished, f.arbiter.Conclude(p, p.Nonce(), s))
	require.False(t, p.Outstanding())
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{
		OutcomeIgnored:     "ignored",
		OutcomeFinished:    "finished",
		OutcomeMisbehaving: "misbehaving",
		OutcomeReRequested: "re-requested",
		OutcomeGaveUp:      "gave-up",
		OutcomeFellBack:    "fell-back",
		Outcome(42):        "Outcome(42)",
	} {
		require.Equal(t, want, o.String())
	}
}
