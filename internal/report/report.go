// Package report turns a finished crawl into persisted artifacts and the
// printed summary.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/domain-email-crawler/internal/crawler"
)

// Report is the immutable output of one crawl run.
type Report struct {
	RunID       string        `json:"run_id"`
	SeedURL     string        `json:"seed_url"`
	Results     []string      `json:"results"`
	Stats       crawler.Stats `json:"stats"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Interrupted bool          `json:"interrupted"`
}

// FromResult builds a Report. interrupted marks a crawl stopped by
// cancellation.
func FromResult(res crawler.Result, interrupted bool) Report {
	return Report{
		RunID:       res.RunID,
		SeedURL:     res.SeedURL,
		Results:     append([]string(nil), res.Results...),
		Stats:       res.Stats,
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
		Interrupted: interrupted,
	}
}

// Lines renders the results one per line.
func (r Report) Lines() []byte {
	var buf bytes.Buffer
	for _, v := range r.Results {
		buf.WriteString(v)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Writer persists a Report somewhere.
type Writer interface {
	Name() string
	Write(ctx context.Context, r Report) error
}

// Closer is implemented by writers holding connections.
type Closer interface {
	Close() error
}

// Fanout writes a Report to every writer, continuing past failures.
type Fanout struct {
	writers []Writer
	logger  *zap.Logger
}

// NewFanout builds a Fanout over writers. Nil entries are skipped.
func NewFanout(logger *zap.Logger, writers ...Writer) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fanout{logger: logger.Named("report")}
	for _, w := range writers {
		if w != nil {
			f.writers = append(f.writers, w)
		}
	}
	return f
}

// Len returns the number of configured writers.
func (f *Fanout) Len() int {
	return len(f.writers)
}

// Write hands r to every writer and joins their errors.
func (f *Fanout) Write(ctx context.Context, r Report) error {
	var errs []error
	for _, w := range f.writers {
		if err := w.Write(ctx, r); err != nil {
			f.logger.Error("report writer failed", zap.String("writer", w.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", w.Name(), err))
			continue
		}
		f.logger.Info("report written", zap.String("writer", w.Name()), zap.Int("results", len(r.Results)))
	}
	return errors.Join(errs...)
}

// Close closes every writer that holds resources.
func (f *Fanout) Close() error {
	var errs []error
	for _, w := range f.writers {
		if c, ok := w.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", w.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

const rule = "-------------------------------------------------------"

// PrintSummary writes the human-readable crawl summary. outputFile may be
// empty when no results file was written.
func PrintSummary(w io.Writer, r Report, outputFile string) error {
	var b strings.Builder
	b.WriteString("\n\n" + rule + "\n")
	if outputFile != "" {
		fmt.Fprintf(&b, "\nEmails have been saved successfully in %s\n", outputFile)
		b.WriteString("\n" + rule + "\n")
	}
	b.WriteString("Crawling Summary:\n")
	b.WriteString(rule + "\n\n")
	if r.Interrupted {
		fmt.Fprintf(&b, "%-45s %s\n\n", "Status:", "interrupted (partial results)")
	}
	fmt.Fprintf(&b, "%-45s %d\n\n", "Number of websites visited:", r.Stats.PagesVisited)
	fmt.Fprintf(&b, "%-45s %d\n\n", "Number of failed fetches:", r.Stats.PagesFailed)
	fmt.Fprintf(&b, "%-45s %d\n\n", "Number of emails crawled:", len(r.Results))
	fmt.Fprintf(&b, "%-45s %.3f s\n\n", "Time taken to crawl:", r.Stats.Elapsed.Seconds())
	b.WriteString(rule + "\n\n\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("print summary: %w", err)
	}
	return nil
}
