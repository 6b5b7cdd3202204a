package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"moche.dev/moche/internal/cli"
	"moche.dev/moche/internal/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd(version, commit, date)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, tui.ColorRed("ERROR: "+err.Error()))
		stop()
		os.Exit(1)
	}
}
