package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/domain-email-crawler/internal/crawler"
	"github.com/JakeFAU/domain-email-crawler/internal/report"
)

func newFakeClient(t *testing.T) (*pstest.Server, *pubsub.Client) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestPublisherWrite(t *testing.T) {
	ctx := context.Background()
	srv, client := newFakeClient(t)
	_, err := client.CreateTopic(ctx, "crawl-runs")
	require.NoError(t, err)

	p, err := NewWithClient(client, "crawl-runs")
	require.NoError(t, err)
	assert.Equal(t, "pubsub", p.Name())

	rep := report.Report{
		RunID:       "run-42",
		SeedURL:     "https://ccis.ksu.edu.sa/en",
		Results:     []string{"a@ksu.edu.sa"},
		Stats:       crawler.Stats{PagesVisited: 3, PagesFailed: 1, Elapsed: 1500 * time.Millisecond},
		Interrupted: true,
	}
	require.NoError(t, p.Write(ctx, rep))
	require.NoError(t, p.Close())
	assert.NotEmpty(t, p.LastMessageID())

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "run-42", msgs[0].Attributes["run_id"])
	assert.Equal(t, "true", msgs[0].Attributes["interrupted"])

	var got Summary
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, "run-42", got.RunID)
	assert.Equal(t, int64(3), got.PagesVisited)
	assert.Equal(t, int64(1), got.PagesFailed)
	assert.Equal(t, 1, got.ResultCount)
	assert.Equal(t, []string{"a@ksu.edu.sa"}, got.Results)
	assert.Equal(t, int64(1500), got.ElapsedMS)
}

func TestPublisherWriteMissingTopic(t *testing.T) {
	_, client := newFakeClient(t)

	p, err := NewWithClient(client, "does-not-exist")
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	err = p.Write(context.Background(), report.Report{RunID: "r"})
	assert.Error(t, err)
}

func TestNewValidation(t *testing.T) {
	_, err := NewWithClient(nil, "topic")
	assert.Error(t, err)

	_, client := newFakeClient(t)
	_, err = NewWithClient(client, "")
	assert.Error(t, err)

	_, err = New(context.Background(), Config{ProjectID: "p"})
	assert.Error(t, err)
}

func TestSummaryOfEmptyResults(t *testing.T) {
	s := summaryOf(report.Report{RunID: "r"})
	assert.NotNil(t, s.Results)
	assert.Zero(t, s.ResultCount)
}
