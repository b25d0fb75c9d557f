// Package pubsub announces finished crawl runs on a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/domain-email-crawler/internal/report"
)

// Config names the project and topic to publish to.
type Config struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Summary is the JSON payload published for each run.
type Summary struct {
	RunID        string    `json:"run_id"`
	SeedURL      string    `json:"seed_url"`
	PagesVisited int64     `json:"pages_visited"`
	PagesFailed  int64     `json:"pages_failed"`
	ResultCount  int       `json:"result_count"`
	Results      []string  `json:"results"`
	ElapsedMS    int64     `json:"elapsed_ms"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Interrupted  bool      `json:"interrupted"`
}

// Publisher wraps a Pub/Sub topic.
type Publisher struct {
	client    *pubsub.Client
	topic     *pubsub.Topic
	ownClient bool
	lastID    string
}

// New dials Pub/Sub and binds the configured topic.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.ProjectID == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("output.pubsub.project_id and output.pubsub.topic are required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	p, err := NewWithClient(client, cfg.Topic)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	p.ownClient = true
	return p, nil
}

// NewWithClient binds topicID on an existing client. The caller keeps
// ownership of the client.
func NewWithClient(client *pubsub.Client, topicID string) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	if topicID == "" {
		return nil, fmt.Errorf("topic is required")
	}
	return &Publisher{client: client, topic: client.Topic(topicID)}, nil
}

// Name identifies the writer in logs.
func (*Publisher) Name() string { return "pubsub" }

// LastMessageID returns the server ID of the last published message.
func (p *Publisher) LastMessageID() string { return p.lastID }

// Write publishes the run summary and waits for the server ack.
func (p *Publisher) Write(ctx context.Context, r report.Report) error {
	data, err := json.Marshal(summaryOf(r))
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"run_id":      r.RunID,
			"interrupted": strconv.FormatBool(r.Interrupted),
		},
	}
	id, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	p.lastID = id
	return nil
}

// Close flushes pending messages and closes the client when owned.
func (p *Publisher) Close() error {
	p.topic.Stop()
	if p.ownClient {
		if err := p.client.Close(); err != nil {
			return fmt.Errorf("close pubsub client: %w", err)
		}
	}
	return nil
}

func summaryOf(r report.Report) Summary {
	results := r.Results
	if results == nil {
		results = []string{}
	}
	return Summary{
		RunID:        r.RunID,
		SeedURL:      r.SeedURL,
		PagesVisited: r.Stats.PagesVisited,
		PagesFailed:  r.Stats.PagesFailed,
		ResultCount:  len(results),
		Results:      results,
		ElapsedMS:    r.Stats.Elapsed.Milliseconds(),
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Interrupted:  r.Interrupted,
	}
}
