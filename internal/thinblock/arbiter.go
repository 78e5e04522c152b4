package thinblock

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/tendermint/thinrelay/libs/log"
	"github.com/tendermint/thinrelay/types"
)

// Misbehavior weights reported against peers.
const (
	// MisbehaviorNoStub is reported when a peer answers the probe without
	// ever sending the merkle block it was asked for.
	MisbehaviorNoStub = 20
	// MisbehaviorBadStub is reported for a merkle block with a malformed
	// proof.
	MisbehaviorBadStub = 10
)

// Outcome is the result of concluding a probe.
type Outcome int

const (
	// OutcomeIgnored means the pong did not answer the outstanding probe.
	OutcomeIgnored Outcome = iota
	// OutcomeFinished means the block was done before the pong arrived.
	OutcomeFinished
	// OutcomeMisbehaving means the peer never sent the block's stub.
	OutcomeMisbehaving
	// OutcomeReRequested means the missing transactions were asked for again.
	OutcomeReRequested
	// OutcomeGaveUp means the peer did not follow up a re-request and other
	// peers are still working on the block.
	OutcomeGaveUp
	// OutcomeFellBack means the peer did not follow up a re-request and the
	// full block was requested from it.
	OutcomeFellBack
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeFinished:
		return "finished"
	case OutcomeMisbehaving:
		return "misbehaving"
	case OutcomeReRequested:
		return "re-requested"
	case OutcomeGaveUp:
		return "gave-up"
	case OutcomeFellBack:
		return "fell-back"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

//go:generate mockery --case underscore --name Messenger|MisbehaviorReporter|BlockSink

// Messenger sends thin block related requests to a peer.
type Messenger interface {
	// RequestMerkleBlock asks for the filtered block hash.
	RequestMerkleBlock(peer types.NodeID, hash chainhash.Hash) error
	// RequestTxs asks for the given transactions, in order.
	RequestTxs(peer types.NodeID, hashes []chainhash.Hash) error
	// RequestBlock asks for the full block hash.
	RequestBlock(peer types.NodeID, hash chainhash.Hash) error
	// SendPing sends a ping carrying nonce.
	SendPing(peer types.NodeID, nonce uint64) error
}

// MisbehaviorReporter collects misbehavior of peers.
type MisbehaviorReporter interface {
	Misbehaving(peer types.NodeID, weight int, reason string)
}

// Arbiter decides what to do when a peer answers the probe sent after a thin
// block request. Once the pong arrives the peer has sent all it is going to,
// so whatever is still missing is asked for once more; if the peer does not
// follow up on that either, it is given up on, and the last peer working on
// the block downloads it in full.
type Arbiter struct {
	logger    log.Logger
	metrics   *Metrics
	messenger Messenger
	reporter  MisbehaviorReporter
	inFlight  InFlightTracker
}

// NewArbiter returns a new Arbiter.
func NewArbiter(
	logger log.Logger,
	messenger Messenger,
	reporter MisbehaviorReporter,
	inFlight InFlightTracker,
	metrics *Metrics,
) *Arbiter {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Arbiter{
		logger:    logger,
		metrics:   metrics,
		messenger: messenger,
		reporter:  reporter,
		inFlight:  inFlight,
	}
}

// Conclude handles a pong carrying nonce from the peer of s, given the
// peer's probe.
func (a *Arbiter) Conclude(probe *Probe, nonce uint64, s *Session) Outcome {
	if nonce == 0 {
		return OutcomeIgnored
	}

	if s.IsAvailable() {
		probe.Clear()
		return OutcomeFinished
	}

	if !probe.Matches(nonce) || probe.Block() != s.BlockHash() {
		a.logger.Debug("pong for a different download; ignoring",
			"peer", s.PeerID(), "probe_block", probe.Block(), "block", s.BlockHash())
		return OutcomeIgnored
	}

	probe.Clear()

	if !s.IsStubBuilt() {
		a.logger.Info("peer did not provide a merkle block",
			"peer", s.PeerID(), "block", s.BlockHash())
		a.misbehaving(s.PeerID(), MisbehaviorNoStub, "no merkle block before pong")
		s.Release()
		return OutcomeMisbehaving
	}

	if s.IsReRequesting() {
		return a.giveUp(s)
	}
	return a.reRequest(probe, s)
}

func (a *Arbiter) reRequest(probe *Probe, s *Session) Outcome {
	peer, hash := s.PeerID(), s.BlockHash()

	missing := s.MissingHashes()
	if len(missing) == 0 {
		panic(fmt.Sprintf("thinblock: re-requesting complete block %v", hash))
	}

	nonce, err := probe.Arm(hash)
	if err != nil {
		a.logger.Error("failed to arm probe", "peer", peer, "block", hash, "err", err)
		return a.giveUp(s)
	}

	a.logger.Info("missing transactions for thin block, re-requesting",
		"peer", peer, "block", hash, "missing", len(missing))

	if err := a.messenger.RequestTxs(peer, missing); err != nil {
		a.logger.Error("failed to re-request transactions", "peer", peer, "err", err)
	}
	s.MarkReRequesting(true)
	if err := a.messenger.SendPing(peer, nonce); err != nil {
		a.logger.Error("failed to send ping", "peer", peer, "err", err)
	}

	a.metrics.ReRequests.Add(1)
	a.metrics.ReRequestedTxs.Add(float64(len(missing)))
	return OutcomeReRequested
}

func (a *Arbiter) giveUp(s *Session) Outcome {
	peer, hash := s.PeerID(), s.BlockHash()
	a.logger.Info("peer did not follow up re-requested transactions",
		"peer", peer, "block", hash)

	sole := s.IsSoleContributor()
	s.Release()
	a.metrics.GiveUps.Add(1)

	if !sole {
		return OutcomeGaveUp
	}

	a.logger.Info("falling back to full block download", "peer", peer, "block", hash)
	if err := a.messenger.RequestBlock(peer, hash); err != nil {
		a.logger.Error("failed to request full block", "peer", peer, "err", err)
	}
	a.inFlight.MarkInFlight(peer, hash)
	a.metrics.FallbackDownloads.Add(1)
	return OutcomeFellBack
}

func (a *Arbiter) misbehaving(peer types.NodeID, weight int, reason string) {
	a.metrics.Misbehaviors.Add(1)
	a.reporter.Misbehaving(peer, weight, reason)
}
