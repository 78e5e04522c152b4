package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dbm "github.com/tendermint/tm-db"
	"golang.org/x/sync/errgroup"

	"github.com/tendermint/thinrelay/config"
	"github.com/tendermint/thinrelay/internal/inflight"
	"github.com/tendermint/thinrelay/internal/relaycache"
	"github.com/tendermint/thinrelay/internal/store"
	"github.com/tendermint/thinrelay/internal/thinblock"
	"github.com/tendermint/thinrelay/libs/log"
	"github.com/tendermint/thinrelay/libs/service"
	"github.com/tendermint/thinrelay/types"
)

// BlockHandler is called for every block the node obtains.
type BlockHandler func(block *wire.MsgBlock, contributors []types.NodeID)

// Node wires the thin block reactor to its caches, stores and metrics. The
// caller provides the peer transport through a Messenger and
// MisbehaviorReporter, and feeds peer events into Reactor.
type Node struct {
	service.BaseService
	logger log.Logger

	config *config.Config

	db       dbm.DB
	txStore  *store.TxStore
	cache    *relaycache.Cache
	inFlight *inflight.Index
	reactor  *thinblock.Reactor
	handler  BlockHandler

	prometheusLn net.Listener
	cancel       context.CancelFunc
	group        *errgroup.Group
}

// Option sets an optional parameter on the Node.
type Option func(*options)

type options struct {
	dbProvider config.DBProvider
	handler    BlockHandler
}

// WithDBProvider replaces the provider opening the node's database.
func WithDBProvider(p config.DBProvider) Option {
	return func(o *options) { o.dbProvider = p }
}

// WithBlockHandler sets the function receiving completed blocks.
func WithBlockHandler(h BlockHandler) Option {
	return func(o *options) { o.handler = h }
}

// New returns a new, unstarted Node.
func New(
	cfg *config.Config,
	logger log.Logger,
	messenger thinblock.Messenger,
	reporter thinblock.MisbehaviorReporter,
	opts ...Option,
) (*Node, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := &options{dbProvider: config.DefaultDBProvider}
	for _, opt := range opts {
		opt(o)
	}

	db, err := o.dbProvider(&config.DBContext{ID: "txstore", Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("opening tx store: %w", err)
	}

	cache, err := relaycache.New(cfg.RelayCache,
		relaycache.WithLogger(logger.With("module", "relaycache")))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	n := &Node{
		logger:   logger,
		config:   cfg,
		db:       db,
		txStore:  store.NewTxStore(db),
		cache:    cache,
		inFlight: inflight.NewIndex(),
		handler:  o.handler,
	}

	n.reactor = thinblock.NewReactor(
		logger.With("module", "thinblock"),
		cfg.ThinBlock,
		messenger,
		reporter,
		n,
		cache,
		n.inFlight,
		createMetrics(cfg.Instrumentation),
		n.txStore,
	)

	n.BaseService = *service.NewBaseService(logger, "Node", n)
	return n, nil
}

func createMetrics(cfg *config.InstrumentationConfig) *thinblock.Metrics {
	if cfg.Prometheus {
		return thinblock.PrometheusMetrics(cfg.Namespace)
	}
	return thinblock.NopMetrics()
}

// OnStart starts the reactor and the node's background tasks.
func (n *Node) OnStart(ctx context.Context) error {
	if n.config.Instrumentation.Prometheus {
		ln, err := net.Listen("tcp", n.config.Instrumentation.PrometheusListenAddr)
		if err != nil {
			return fmt.Errorf("prometheus listener: %w", err)
		}
		n.prometheusLn = ln
	}

	ctx, n.cancel = context.WithCancel(ctx)
	if err := n.reactor.Start(ctx); err != nil {
		n.cancel()
		if n.prometheusLn != nil {
			_ = n.prometheusLn.Close()
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n.cache.Run(gctx, n.config.RelayCache.ExpireInterval)
		return nil
	})
	if n.prometheusLn != nil {
		g.Go(func() error {
			return n.servePrometheus(gctx, n.prometheusLn)
		})
	}
	n.group = g

	n.logger.Info("started node",
		"db_backend", n.config.DBBackend,
		"relay_cache_size", n.config.RelayCache.Size,
		"prometheus", n.config.Instrumentation.Prometheus)
	return nil
}

// OnStop stops the reactor and background tasks and closes the database.
func (n *Node) OnStop() {
	n.cancel()

	if err := n.reactor.Stop(); err != nil && !errors.Is(err, service.ErrAlreadyStopped) {
		n.logger.Error("failed to stop the thin block reactor", "err", err)
	}
	if err := n.group.Wait(); err != nil {
		n.logger.Error("background task failed", "err", err)
	}
	if err := n.db.Close(); err != nil {
		n.logger.Error("failed to close database", "err", err)
	}
}

// servePrometheus serves Prometheus metrics on ln until ctx is canceled.
func (n *Node) servePrometheus(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{MaxRequestsInFlight: n.config.Instrumentation.MaxOpenConnections},
			),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			n.logger.Error("Prometheus HTTP server Shutdown", "err", err)
		}
		<-errc
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("prometheus HTTP server: %w", err)
	}
}

// HaveBlock implements thinblock.BlockSink.
func (n *Node) HaveBlock(hash chainhash.Hash) bool {
	ok, err := n.txStore.HasBlock(hash)
	if err != nil {
		n.logger.Error("failed to look up block", "block", hash, "err", err)
		return false
	}
	return ok
}

// ProcessBlock implements thinblock.BlockSink.
func (n *Node) ProcessBlock(block *wire.MsgBlock, contributors []types.NodeID) {
	hash := block.BlockHash()
	if err := n.txStore.SaveBlockHeader(&block.Header); err != nil {
		n.logger.Error("failed to save block header", "block", hash, "err", err)
	}
	n.logger.Info("obtained block", "block", hash,
		"txs", len(block.Transactions), "contributors", contributors)

	if n.handler != nil {
		n.handler(block, contributors)
	}
}

// PrometheusAddr returns the address metrics are served on, or nil if
// Prometheus is disabled or the node is not running.
func (n *Node) PrometheusAddr() net.Addr {
	if n.prometheusLn == nil {
		return nil
	}
	return n.prometheusLn.Addr()
}

// Reactor returns the thin block reactor peer events are fed into.
func (n *Node) Reactor() *thinblock.Reactor { return n.reactor }

// TxStore returns the node's transaction store.
func (n *Node) TxStore() *store.TxStore { return n.txStore }

// RelayCache returns the node's relay cache.
func (n *Node) RelayCache() *relaycache.Cache { return n.cache }

// InFlight returns the index of blocks in flight per peer.
func (n *Node) InFlight() *inflight.Index { return n.inFlight }
