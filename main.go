// The main package for the domain-email-crawler executable.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/JakeFAU/domain-email-crawler/cmd"
)

// main defers all execution to the Cobra CLI. SIGINT/SIGTERM cancel the
// crawl, which then saves its partial results.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cmd.Execute(ctx)
	stop()
	os.Exit(code)
}
