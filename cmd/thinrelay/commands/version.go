package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendermint/thinrelay/version"
)

// VersionCmd shows the version of thinrelay.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return err
		}
		if !verbose {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
			return nil
		}

		values, err := json.MarshalIndent(struct {
			ThinRelay         string `json:"thinrelay"`
			ThinBlockProtocol uint32 `json:"thin_block_protocol"`
		}{
			ThinRelay:         version.Version,
			ThinBlockProtocol: version.ThinBlockProtocol,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(values))
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolP("verbose", "v", false, "Show protocol and library versions")
}
