package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/adapters/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewRootCommand(cli.BootstrapConnector))
	stop()
	os.Exit(code)
}
