package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"paperman/src/internal/pipeline"
)

var rootCmd = newRootCmd()

func execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// exitCode maps an error to the process status: 2 for a malformed chain,
// 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, pipeline.ErrUsage) {
		return 2
	}
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := execute(ctx)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "paperman:", err)
		if errors.Is(err, pipeline.ErrUsage) {
			_, _ = fmt.Fprintf(os.Stderr, "\n%s\n", pipeline.Grammar)
		}
		os.Exit(exitCode(err))
	}
}
