package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/datalust/seq-input-syslog/cmd/release/command"
)

func main() {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt)
	os.Exit(command.Run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]))
}
