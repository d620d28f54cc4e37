// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/domscout-cli/cmd"
	"github.com/xkilldash9x/domscout-cli/internal/observability"
)

// main is the entry point for the domscout CLI application.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	stop()
	if err != nil {
		os.Exit(1)
	}
}
