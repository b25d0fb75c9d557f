package report

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/domain-email-crawler/internal/crawler"
)

type recordingWriter struct {
	name   string
	err    error
	got    []Report
	closed bool
}

func (w *recordingWriter) Name() string { return w.name }

func (w *recordingWriter) Write(_ context.Context, r Report) error {
	w.got = append(w.got, r)
	return w.err
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func sampleReport() Report {
	return FromResult(crawler.Result{
		RunID:   "run-1",
		SeedURL: "https://ccis.ksu.edu.sa/en",
		Results: []string{"a@ksu.edu.sa", "b@ksu.edu.sa"},
		Stats: crawler.Stats{
			PagesVisited: 12,
			PagesFailed:  3,
			Elapsed:      2345 * time.Millisecond,
		},
	}, false)
}

func TestReportLines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a@ksu.edu.sa\nb@ksu.edu.sa\n", string(sampleReport().Lines()))
	assert.Empty(t, Report{}.Lines())
}

func TestFromResultCopiesResults(t *testing.T) {
	t.Parallel()

	res := crawler.Result{Results: []string{"x@ksu.edu.sa"}}
	r := FromResult(res, true)
	res.Results[0] = "mutated"
	assert.Equal(t, []string{"x@ksu.edu.sa"}, r.Results)
	assert.True(t, r.Interrupted)
}

func TestFanoutContinuesPastFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("bucket missing")
	first := &recordingWriter{name: "gcs", err: boom}
	second := &recordingWriter{name: "file"}
	fan := NewFanout(nil, first, nil, second)
	require.Equal(t, 2, fan.Len())

	err := fan.Write(context.Background(), sampleReport())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "gcs")
	assert.Len(t, first.got, 1)
	assert.Len(t, second.got, 1)

	require.NoError(t, fan.Close())
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, sampleReport(), "KSU_Emails.txt"))
	out := buf.String()

	assert.Contains(t, out, "Emails have been saved successfully in KSU_Emails.txt")
	assert.Contains(t, out, "Number of websites visited:                   12\n")
	assert.Contains(t, out, "Number of failed fetches:                     3\n")
	assert.Contains(t, out, "Number of emails crawled:                     2\n")
	assert.Contains(t, out, "Time taken to crawl:                          2.345 s\n")
	assert.NotContains(t, out, "interrupted")
}

func TestPrintSummaryInterrupted(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	r.Interrupted = true
	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, r, ""))
	assert.Contains(t, buf.String(), "interrupted (partial results)")
	assert.NotContains(t, buf.String(), "saved successfully")
}
