// Package gcs uploads crawl results to Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/domain-email-crawler/internal/report"
)

const defaultObjectTemplate = "results/{run_id}.txt"

// Config captures the destination bucket and object naming.
type Config struct {
	Bucket string `mapstructure:"bucket"`
	// Object is the object name; "{run_id}" is replaced with the run ID.
	Object string `mapstructure:"object"`
}

// ResultsObject writes a report's results listing to a GCS object.
type ResultsObject struct {
	client   *storage.Client
	bucket   string
	template string
	lastURI  string
}

// New creates a GCS-backed results writer.
func New(client *storage.Client, cfg Config) (*ResultsObject, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	template := strings.TrimSpace(cfg.Object)
	if template == "" {
		template = defaultObjectTemplate
	}
	return &ResultsObject{
		client:   client,
		bucket:   cfg.Bucket,
		template: template,
	}, nil
}

// Name identifies the writer in logs.
func (*ResultsObject) Name() string { return "gcs" }

// URI returns the gs:// location of the last successful upload.
func (o *ResultsObject) URI() string { return o.lastURI }

// ObjectName resolves the object path for a run.
func (o *ResultsObject) ObjectName(runID string) string {
	if runID == "" {
		runID = "latest"
	}
	return strings.ReplaceAll(o.template, "{run_id}", runID)
}

// Write uploads the results, one per line, tagging the object with run stats.
func (o *ResultsObject) Write(ctx context.Context, r report.Report) error {
	path := o.ObjectName(r.RunID)
	writer := o.client.Bucket(o.bucket).Object(path).NewWriter(ctx)
	writer.ContentType = "text/plain; charset=utf-8"
	writer.Metadata = map[string]string{
		"run_id":        r.RunID,
		"seed_url":      r.SeedURL,
		"pages_visited": strconv.FormatInt(r.Stats.PagesVisited, 10),
		"results":       strconv.Itoa(len(r.Results)),
		"interrupted":   strconv.FormatBool(r.Interrupted),
	}
	if _, err := io.Copy(writer, bytes.NewReader(r.Lines())); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	o.lastURI = fmt.Sprintf("gs://%s/%s", o.bucket, path)
	return nil
}
