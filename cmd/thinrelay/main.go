package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tendermint/thinrelay/cmd/thinrelay/commands"
	"github.com/tendermint/thinrelay/config"
	"github.com/tendermint/thinrelay/libs/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conf := config.DefaultConfig()

	rcmd := commands.RootCommand(conf)
	rcmd.AddCommand(
		commands.MakeInitFilesCommand(conf),
		commands.MakeImportTxsCommand(conf),
		commands.MakeReconstructCommand(conf),
		commands.VersionCmd,
	)

	if err := cli.RunWithTrace(ctx, rcmd); err != nil {
		cancel()
		os.Exit(1)
	}
}
