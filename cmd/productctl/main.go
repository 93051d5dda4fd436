// Package main is productctl, a command line front end to the catalog admin list view.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(newApp(os.Stdin, os.Stdout, os.Stderr))
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errAlerted) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
