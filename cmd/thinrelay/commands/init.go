package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tendermint/thinrelay/config"
)

// MakeInitFilesCommand returns the command to initialize a fresh thinrelay
// home directory.
func MakeInitFilesCommand(conf *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initializes a thinrelay home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(conf)
			if err != nil {
				return err
			}

			path := config.ConfigFilePath(conf.RootDir)
			if _, err := os.Stat(path); err == nil {
				logger.Info("found config file", "path", path)
				return nil
			}

			if err := config.WriteConfigFile(conf.RootDir, conf); err != nil {
				return err
			}
			logger.Info("generated config file", "path", path)
			return nil
		},
	}
}
