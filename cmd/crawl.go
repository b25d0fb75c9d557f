// Package cmd defines and implements the CLI commands for the crawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// flagBindings maps crawl flags to their configuration keys.
var flagBindings = map[string]string{
	"seed":        "crawler.seed_url",
	"domain":      "crawler.domain_filter",
	"depth":       "crawler.max_depth",
	"concurrency": "crawler.concurrency",
	"timeout":     "crawler.request_timeout",
	"pattern":     "extract.pattern",
	"lowercase":   "extract.lowercase",
	"output":      "output.file",
	"listen":      "server.addr",
}

// newCrawlCmd creates and configures the 'crawl' subcommand.
func newCrawlCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl from the seed URL and save the harvested emails",
		Long: `Fetches the seed page, follows links whose host contains the domain filter
until the depth ceiling is reached, and extracts every match of the pattern.
Results are written to every configured output and a summary is printed.
Interrupting the crawl (Ctrl-C) keeps and saves the partial results.`,

		RunE: runCrawlCommand,
	}

	f := cmd.Flags()
	f.String("seed", "", "seed URL (depth 0)")
	f.String("domain", "", "host substring a link must contain to be followed")
	f.Int("depth", 0, "exclusive depth ceiling; 0 or 1 crawls the seed only")
	f.Int("concurrency", 0, "number of concurrent workers")
	f.Duration("timeout", 0, "per-request timeout")
	f.String("pattern", "", "regular expression matched against page bodies")
	f.Bool("lowercase", false, "fold matches to lower case before deduplication")
	f.String("output", "", "results file path")
	f.String("listen", "", "address for the status server, e.g. :8080")

	for flag, key := range flagBindings {
		if err := v.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	rep, err := appInstance.Run(cmd.Context(), cmd.OutOrStdout())
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawler: %w", err)
	}

	appInstance.Logger().Info("Crawl command finished.",
		zap.String("run_id", rep.RunID),
		zap.Int("results", len(rep.Results)),
		zap.Bool("interrupted", rep.Interrupted),
	)
	return nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
