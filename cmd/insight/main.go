package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/omicsview/insight/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
