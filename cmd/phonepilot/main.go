// File: cmd/phonepilot/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/phonepilot-cli/cmd"
	"github.com/xkilldash9x/phonepilot-cli/internal/observability"
)

func main() {
	// Ctrl+C and SIGTERM cancel the command context; the session loop winds
	// down cooperatively from there.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
