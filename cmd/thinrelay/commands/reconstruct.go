package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/btcsuite/btcutil/bloom"
	"github.com/spf13/cobra"

	"github.com/tendermint/thinrelay/config"
	"github.com/tendermint/thinrelay/node"
	"github.com/tendermint/thinrelay/types"
)

// offlinePeer stands in for the peer that sent the merkle block.
const offlinePeer = types.NodeID("127.0.0.1:8333")

// offlineMessenger records what the reactor would have sent to the peer.
type offlineMessenger struct {
	lastPing  uint64
	missing   []chainhash.Hash
	fullBlock bool
}

func (m *offlineMessenger) RequestMerkleBlock(types.NodeID, chainhash.Hash) error { return nil }

func (m *offlineMessenger) RequestTxs(_ types.NodeID, hashes []chainhash.Hash) error {
	m.missing = append([]chainhash.Hash(nil), hashes...)
	return nil
}

func (m *offlineMessenger) RequestBlock(types.NodeID, chainhash.Hash) error {
	m.fullBlock = true
	return nil
}

func (m *offlineMessenger) SendPing(_ types.NodeID, nonce uint64) error {
	m.lastPing = nonce
	return nil
}

type offlineReporter struct {
	reasons []string
}

func (r *offlineReporter) Misbehaving(_ types.NodeID, weight int, reason string) {
	r.reasons = append(r.reasons, fmt.Sprintf("%s (weight %d)", reason, weight))
}

// matchAllMerkleBlock returns the merkle block a peer sends for block when
// asked with a filter matching every transaction.
func matchAllMerkleBlock(block *wire.MsgBlock) *wire.MsgMerkleBlock {
	filter := bloom.NewFilter(uint32(len(block.Transactions)), 0, 0.000001, wire.BloomUpdateNone)
	for _, tx := range block.Transactions {
		h := tx.TxHash()
		filter.AddHash(&h)
	}
	mb, _ := bloom.NewMerkleBlock(btcutil.NewBlock(block), filter)
	return mb
}

// MakeReconstructCommand returns the command that reassembles a block from a
// merkle block and the transactions known to the node, without any network.
func MakeReconstructCommand(conf *config.Config) *cobra.Command {
	var (
		merkleBlockHex string
		blockHex       string
		txs            []string
		txsFile        string
		printBlock     bool
	)

	cmd := &cobra.Command{
		Use:   "reconstruct",
		Short: "Reassemble a block from a merkle block and known transactions",
		Long: `Reassemble a block from a BIP37 merkle block, the transactions given on the
command line and those in the node's transaction store.

Instead of a merkle block, a full block can be given with --block; the merkle
block a peer would send for it is derived with a match-all bloom filter, and
only the transactions given separately are used to rebuild it.

If transactions are missing, their hashes are printed and the command fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var msg *wire.MsgMerkleBlock
			switch {
			case merkleBlockHex != "" && blockHex != "":
				return errors.New("--merkleblock and --block are mutually exclusive")
			case merkleBlockHex != "":
				mb, err := decodeMerkleBlock(merkleBlockHex)
				if err != nil {
					return err
				}
				msg = mb
			case blockHex != "":
				block, err := decodeBlock(blockHex)
				if err != nil {
					return err
				}
				msg = matchAllMerkleBlock(block)
			default:
				return errors.New("one of --merkleblock or --block is required")
			}

			provided, err := readTxs(txs, txsFile)
			if err != nil {
				return err
			}

			block, missing, err := reconstruct(cmd, conf, msg, provided)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), msg.Header.BlockHash(), block, missing, printBlock)
		},
	}
	cmd.Flags().StringVar(&merkleBlockHex, "merkleblock", "", "hex encoded merkleblock message")
	cmd.Flags().StringVar(&blockHex, "block", "", "hex encoded block to derive a match-all merkleblock from")
	cmd.Flags().StringArrayVar(&txs, "tx", nil, "hex encoded transaction (repeatable)")
	cmd.Flags().StringVar(&txsFile, "txs-file", "", "file with one hex encoded transaction per line")
	cmd.Flags().BoolVar(&printBlock, "print-block", false, "print the reassembled block as hex")
	return cmd
}

func reconstruct(
	cmd *cobra.Command,
	conf *config.Config,
	msg *wire.MsgMerkleBlock,
	provided []*wire.MsgTx,
) (*wire.MsgBlock, []chainhash.Hash, error) {
	ctx := cmd.Context()

	logger, err := newLogger(conf)
	if err != nil {
		return nil, nil, err
	}

	ncfg := *conf
	instrumentation := *conf.Instrumentation
	instrumentation.Prometheus = false
	ncfg.Instrumentation = &instrumentation

	var block *wire.MsgBlock
	messenger := &offlineMessenger{}
	reporter := &offlineReporter{}

	n, err := node.New(&ncfg, logger, messenger, reporter,
		node.WithBlockHandler(func(b *wire.MsgBlock, _ []types.NodeID) { block = b }))
	if err != nil {
		return nil, nil, err
	}
	if err := n.Start(ctx); err != nil {
		return nil, nil, err
	}
	defer func() {
		if err := n.Stop(); err != nil {
			logger.Error("failed to stop node", "err", err)
		}
	}()

	r := n.Reactor()
	if err := r.AddPeer(ctx, offlinePeer); err != nil {
		return nil, nil, err
	}
	for _, tx := range provided {
		if err := r.ReceiveTx(ctx, offlinePeer, tx); err != nil {
			return nil, nil, err
		}
	}

	if err := r.ReceiveMerkleBlock(ctx, offlinePeer, msg); err != nil {
		return nil, nil, err
	}
	if len(reporter.reasons) > 0 {
		return nil, nil, fmt.Errorf("merkle block rejected: %s", strings.Join(reporter.reasons, "; "))
	}
	if block != nil {
		return block, nil, nil
	}
	if messenger.lastPing == 0 {
		return nil, nil, fmt.Errorf("block %v is already stored", msg.Header.BlockHash())
	}

	// The pong ends the peer's answer: whatever is still missing gets
	// re-requested.
	if err := r.ReceivePong(ctx, offlinePeer, messenger.lastPing); err != nil {
		return nil, nil, err
	}
	return block, messenger.missing, nil
}

func printResult(w io.Writer, hash chainhash.Hash, block *wire.MsgBlock, missing []chainhash.Hash, printBlock bool) error {
	if block == nil {
		fmt.Fprintf(w, "block %v is missing %d transactions:\n", hash, len(missing))
		for _, h := range missing {
			fmt.Fprintln(w, h)
		}
		return fmt.Errorf("block %v is incomplete", hash)
	}

	fmt.Fprintf(w, "reconstructed block %v (%d transactions)\n", hash, len(block.Transactions))
	if printBlock {
		s, err := encodeBlock(block)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, s)
	}
	return nil
}
