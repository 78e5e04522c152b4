package thinblock

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/tendermint/thinrelay/config"
	"github.com/tendermint/thinrelay/libs/log"
	"github.com/tendermint/thinrelay/libs/service"
	"github.com/tendermint/thinrelay/types"
)

var _ service.Service = (*Reactor)(nil)

var (
	// ErrUnknownPeer is returned for events naming a peer that was never
	// added or was already removed.
	ErrUnknownPeer = errors.New("unknown peer")

	// ErrNotRunning is returned for events submitted to a reactor that is
	// not running.
	ErrNotRunning = errors.New("thin block reactor is not running")
)

// BlockSink receives blocks once they are complete.
type BlockSink interface {
	// HaveBlock reports whether the block's data is already stored.
	HaveBlock(hash chainhash.Hash) bool
	// ProcessBlock hands over a complete block, along with the peers that
	// provided it.
	ProcessBlock(block *wire.MsgBlock, contributors []types.NodeID)
}

// TxCache keeps transactions relayed to the node so thin blocks can be
// reassembled from them.
type TxCache interface {
	TxLocator
	Insert(tx *wire.MsgTx)
}

type peerState struct {
	session *Session
	probe   *Probe
}

type event struct {
	name string
	fn   func() error
	done chan error
}

// Reactor drives thin block downloads from peer events. Every event is
// applied on a single goroutine, so the Manager, Sessions and Probes it owns
// never see concurrent access.
type Reactor struct {
	service.BaseService
	logger log.Logger

	cfg       *config.ThinBlockConfig
	metrics   *Metrics
	messenger Messenger
	reporter  MisbehaviorReporter
	sink      BlockSink
	cache     TxCache
	locator   TxLocator
	inFlight  InFlightTracker

	mgr     *Manager
	arbiter *Arbiter

	// owned by the event loop
	peers map[types.NodeID]*peerState

	events chan event
}

// NewReactor returns a new reactor. Transactions are looked up in cache
// first, then in locators.
func NewReactor(
	logger log.Logger,
	cfg *config.ThinBlockConfig,
	messenger Messenger,
	reporter MisbehaviorReporter,
	sink BlockSink,
	cache TxCache,
	inFlight InFlightTracker,
	metrics *Metrics,
	locators ...TxLocator,
) *Reactor {
	if metrics == nil {
		metrics = NopMetrics()
	}

	r := &Reactor{
		logger:    logger,
		cfg:       cfg,
		metrics:   metrics,
		messenger: messenger,
		reporter:  reporter,
		sink:      sink,
		cache:     cache,
		locator:   append(MultiLocator{cache}, locators...),
		inFlight:  inFlight,
		peers:     make(map[types.NodeID]*peerState),
		events:    make(chan event, cfg.EventQueueSize),
	}
	r.mgr = NewManager(logger.With("module", "thinblock-manager"), r.blockCompleted, inFlight, WithMetrics(metrics))
	r.arbiter = NewArbiter(logger, messenger, reporter, inFlight, metrics)
	r.BaseService = *service.NewBaseService(logger, "ThinBlock", r)

	return r
}

// OnStart starts the event loop. It runs until ctx is canceled or the
// reactor is stopped.
func (r *Reactor) OnStart(ctx context.Context) error {
	go r.processEvents(ctx)
	return nil
}

// OnStop is a no-op; the event loop exits once the reactor quits.
func (r *Reactor) OnStop() {}

// AddPeer starts tracking peer.
func (r *Reactor) AddPeer(ctx context.Context, peer types.NodeID) error {
	return r.submit(ctx, "add-peer", func() error {
		if _, ok := r.peers[peer]; ok {
			return fmt.Errorf("peer %v already added", peer)
		}
		r.peers[peer] = &peerState{
			session: NewSession(r.mgr, peer),
			probe:   NewProbe(),
		}
		r.logger.Debug("added peer", "peer", peer)
		return nil
	})
}

// RemovePeer stops tracking peer, abandoning its download and forgetting
// every block in flight from it.
func (r *Reactor) RemovePeer(ctx context.Context, peer types.NodeID) error {
	return r.submit(ctx, "remove-peer", func() error {
		ps, ok := r.peers[peer]
		if !ok {
			return nil
		}
		ps.session.Release()
		// a full block requested on fallback is no longer tracked by the
		// session, so only Clear drops its marker
		r.inFlight.Clear(peer)
		delete(r.peers, peer)
		r.logger.Debug("removed peer", "peer", peer)
		return nil
	})
}

// RequestBlock asks peer for hash as a thin block. A ping follows the
// request so a peer that never answers with a merkle block is noticed.
func (r *Reactor) RequestBlock(ctx context.Context, peer types.NodeID, hash chainhash.Hash) error {
	return r.submit(ctx, "request-block", func() error {
		ps, err := r.peer(peer)
		if err != nil {
			return err
		}
		if r.sink.HaveBlock(hash) {
			r.logger.Debug("already have block; not requesting", "block", hash)
			return nil
		}

		ps.session.AssignTo(hash)
		r.inFlight.MarkInFlight(peer, hash)
		if err := r.messenger.RequestMerkleBlock(peer, hash); err != nil {
			ps.session.Release()
			return fmt.Errorf("requesting merkle block %v from %v: %w", hash, peer, err)
		}
		return r.ping(ps, hash)
	})
}

// ReceiveMerkleBlock handles a merkle block from peer.
func (r *Reactor) ReceiveMerkleBlock(ctx context.Context, peer types.NodeID, msg *wire.MsgMerkleBlock) error {
	return r.submit(ctx, "merkle-block", func() error {
		ps, err := r.peer(peer)
		if err != nil {
			return err
		}

		hash := msg.Header.BlockHash()
		if r.sink.HaveBlock(hash) {
			r.logger.Debug("already had block; ignoring merkle block", "block", hash, "peer", peer)
			ps.session.Release()
			return nil
		}

		s := ps.session
		if !s.IsAvailable() && s.BlockHash() != hash {
			r.logger.Debug("peer sent a different block; switching",
				"peer", peer, "expected", s.BlockHash(), "block", hash)
		}
		s.AssignTo(hash)

		r.logger.Debug("received stub for block", "block", hash, "peer", peer)

		if _, err := s.BuildStub(NewMerkleBlockStub(msg, r.cfg.MaxBlockTxs), r.locator); err != nil {
			if !errors.Is(err, ErrMalformedProof) {
				return err
			}
			r.logger.Info("rejecting merkle block", "peer", peer, "err", err)
			r.metrics.Misbehaviors.Add(1)
			r.reporter.Misbehaving(peer, MisbehaviorBadStub, "bad merkle tree")
			s.Release()
			return nil
		}

		return r.ping(ps, hash)
	})
}

// ReceiveTx handles a transaction relayed by peer. The transaction is
// cached even if peer is not tracked.
func (r *Reactor) ReceiveTx(ctx context.Context, peer types.NodeID, tx *wire.MsgTx) error {
	return r.submit(ctx, "tx", func() error {
		r.cache.Insert(tx)

		if ps, ok := r.peers[peer]; ok {
			ps.session.Supply(tx)
		}
		return nil
	})
}

// ReceivePong handles a pong from peer.
func (r *Reactor) ReceivePong(ctx context.Context, peer types.NodeID, nonce uint64) error {
	return r.submit(ctx, "pong", func() error {
		ps, err := r.peer(peer)
		if err != nil {
			return err
		}
		outcome := r.arbiter.Conclude(ps.probe, nonce, ps.session)
		r.logger.Debug("concluded probe", "peer", peer, "outcome", outcome)
		return nil
	})
}

// ReceiveBlock handles a full block from peer, as downloaded after a thin
// block fell back. Any thin download of the same block is abandoned.
func (r *Reactor) ReceiveBlock(ctx context.Context, peer types.NodeID, block *wire.MsgBlock) error {
	return r.submit(ctx, "block", func() error {
		hash := block.BlockHash()
		r.inFlight.Erase(peer, hash)
		r.mgr.RemoveIfExists(hash)
		if r.sink.HaveBlock(hash) {
			return nil
		}
		r.sink.ProcessBlock(block, []types.NodeID{peer})
		return nil
	})
}

// ActiveBlocks returns the number of blocks under reconstruction.
func (r *Reactor) ActiveBlocks(ctx context.Context) (int, error) {
	var n int
	err := r.submit(ctx, "active-blocks", func() error {
		n = r.mgr.Len()
		return nil
	})
	return n, err
}

func (r *Reactor) peer(id types.NodeID) (*peerState, error) {
	ps, ok := r.peers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownPeer, id)
	}
	return ps, nil
}

func (r *Reactor) ping(ps *peerState, hash chainhash.Hash) error {
	nonce, err := ps.probe.Arm(hash)
	if err != nil {
		return err
	}
	if err := r.messenger.SendPing(ps.session.PeerID(), nonce); err != nil {
		return fmt.Errorf("sending ping to %v: %w", ps.session.PeerID(), err)
	}
	return nil
}

func (r *Reactor) blockCompleted(block *wire.MsgBlock, contributors []types.NodeID) {
	hash := block.BlockHash()
	for _, peer := range contributors {
		r.inFlight.Erase(peer, hash)
	}
	r.sink.ProcessBlock(block, contributors)
}

// submit runs fn on the event loop and waits for its result.
func (r *Reactor) submit(ctx context.Context, name string, fn func() error) error {
	if !r.IsRunning() {
		return ErrNotRunning
	}

	ev := event{name: name, fn: fn, done: make(chan error, 1)}
	select {
	case r.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.Quit():
		return ErrNotRunning
	}

	select {
	case err := <-ev.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.Quit():
		return ErrNotRunning
	}
}

func (r *Reactor) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.Quit():
			return
		case ev := <-r.events:
			ev.done <- r.handleEvent(ev)
		}
	}
}

// handleEvent applies ev. A panic leaves the Manager in an unknown state, so
// it stops the reactor.
func (r *Reactor) handleEvent(ev event) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("panic in processing %s event: %v", ev.name, e)
			r.logger.Error(
				"stopping thin block reactor after panic",
				"event", ev.name,
				"err", err,
				"stack", string(debug.Stack()),
			)
			if serr := r.Stop(); serr != nil {
				r.logger.Error("failed to stop thin block reactor", "err", serr)
			}
		}
	}()

	return ev.fn()
}
