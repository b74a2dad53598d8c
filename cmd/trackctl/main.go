package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	env := newCtlEnv(os.Stdout, defaultCtlFactories())
	if err := newRootCmd(env).ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
