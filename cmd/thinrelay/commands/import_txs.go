package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendermint/thinrelay/config"
	"github.com/tendermint/thinrelay/internal/store"
)

// MakeImportTxsCommand returns the command that stores transactions in the
// node's transaction store, where thin block reassembly will find them.
func MakeImportTxsCommand(conf *config.Config) *cobra.Command {
	var txsFile string

	cmd := &cobra.Command{
		Use:   "import-txs [hex-tx...]",
		Short: "Store transactions for thin block reassembly",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(conf)
			if err != nil {
				return err
			}

			txs, err := readTxs(args, txsFile)
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				return fmt.Errorf("no transactions given")
			}

			db, err := config.DefaultDBProvider(&config.DBContext{ID: "txstore", Config: conf})
			if err != nil {
				return err
			}
			defer db.Close()

			ts := store.NewTxStore(db)
			for _, tx := range txs {
				if err := ts.SaveTx(tx); err != nil {
					return err
				}
				logger.Debug("imported tx", "tx", tx.TxHash())
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d transactions\n", len(txs))
			return nil
		},
	}
	cmd.Flags().StringVar(&txsFile, "txs-file", "", "file with one hex encoded transaction per line")
	return cmd
}
