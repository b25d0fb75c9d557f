// Package local writes crawl results to the local filesystem.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/domain-email-crawler/internal/report"
)

// Config captures the parameters for the results file.
type Config struct {
	// Path is the file that receives one result per line.
	Path string `mapstructure:"file"`
}

// ResultsFile writes a report's results to a single text file.
type ResultsFile struct {
	path string
}

// New validates the target path and creates its parent directory.
func New(cfg Config) (*ResultsFile, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("results file path is required")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("results file path %q is a directory", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create results directory: %w", err)
		}
	}
	return &ResultsFile{path: path}, nil
}

// Name identifies the writer in logs.
func (*ResultsFile) Name() string { return "file" }

// Path returns the destination file.
func (f *ResultsFile) Path() string { return f.path }

// Write replaces the file contents with r's results. The file is written to
// a temporary sibling first and renamed into place.
func (f *ResultsFile) Write(_ context.Context, r report.Report) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp results file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(r.Lines()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write results file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod results file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close results file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("rename results file: %w", err)
	}
	return nil
}
