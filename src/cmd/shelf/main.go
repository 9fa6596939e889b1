package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := execute(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
