// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/domain-email-crawler/internal/crawler"
	"github.com/JakeFAU/domain-email-crawler/internal/logging"
	"github.com/JakeFAU/domain-email-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/domain-email-crawler/internal/storage/gcs"
	"github.com/JakeFAU/domain-email-crawler/internal/storage/postgres"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawler CrawlerConfig  `mapstructure:"crawler"`
	Extract ExtractConfig  `mapstructure:"extract"`
	Output  OutputConfig   `mapstructure:"output"`
	Server  ServerConfig   `mapstructure:"server"`
	Logging logging.Config `mapstructure:"logging"`
}

// CrawlerConfig governs the crawl itself.
type CrawlerConfig struct {
	SeedURL           string        `mapstructure:"seed_url"`
	DomainFilter      string        `mapstructure:"domain_filter"`
	ExcludeHosts      []string      `mapstructure:"exclude_hosts"`
	MaxDepth          int           `mapstructure:"max_depth"`
	Concurrency       int           `mapstructure:"concurrency"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	MaxBodyBytes      int           `mapstructure:"max_body_bytes"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// ExtractConfig controls what is harvested from each page.
type ExtractConfig struct {
	Pattern   string `mapstructure:"pattern"`
	Lowercase bool   `mapstructure:"lowercase"`
}

// OutputConfig lists the destinations a finished crawl is written to.
type OutputConfig struct {
	File     string          `mapstructure:"file"`
	Summary  bool            `mapstructure:"summary"`
	GCS      gcs.Config      `mapstructure:"gcs"`
	Postgres postgres.Config `mapstructure:"postgres"`
	PubSub   pubsub.Config   `mapstructure:"pubsub"`
}

// ServerConfig controls the optional status server. Empty Addr disables it.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith builds a Config using v, which may already carry bound flags.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.seed_url", "https://ccis.ksu.edu.sa/en")
	v.SetDefault("crawler.domain_filter", "ksu.edu.sa")
	v.SetDefault("crawler.exclude_hosts", []string{})
	v.SetDefault("crawler.max_depth", 2)
	v.SetDefault("crawler.concurrency", 8)
	v.SetDefault("crawler.request_timeout", 10*time.Second)
	v.SetDefault("crawler.user_agent", "domain-email-crawler/1.0")
	v.SetDefault("crawler.max_body_bytes", 10<<20)
	v.SetDefault("crawler.requests_per_second", 0)
	v.SetDefault("crawler.burst", 1)
	v.SetDefault("extract.pattern", crawler.DefaultEmailPattern)
	v.SetDefault("extract.lowercase", false)
	v.SetDefault("output.file", "KSU_Emails.txt")
	v.SetDefault("output.summary", true)
	v.SetDefault("output.gcs.bucket", "")
	v.SetDefault("output.gcs.object", "results/{run_id}.txt")
	v.SetDefault("output.postgres.dsn", "")
	v.SetDefault("output.postgres.runs_table", "crawl_runs")
	v.SetDefault("output.postgres.results_table", "crawl_results")
	v.SetDefault("output.postgres.create_tables", false)
	v.SetDefault("output.postgres.max_conns", 4)
	v.SetDefault("output.pubsub.project_id", "")
	v.SetDefault("output.pubsub.topic", "")
	v.SetDefault("server.addr", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	u, err := url.Parse(c.Crawler.SeedURL)
	if c.Crawler.SeedURL == "" || err != nil || u.Host == "" {
		return fmt.Errorf("crawler.seed_url must be an absolute URL")
	}
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.Crawler.RequestsPerSecond < 0 {
		return fmt.Errorf("crawler.requests_per_second must be >= 0")
	}
	if c.Crawler.RequestsPerSecond > 0 && c.Crawler.Burst <= 0 {
		return fmt.Errorf("crawler.burst must be > 0 when rate limiting is enabled")
	}
	if strings.TrimSpace(c.Extract.Pattern) == "" {
		return fmt.Errorf("extract.pattern must not be empty")
	}
	if (c.Output.PubSub.ProjectID == "") != (c.Output.PubSub.Topic == "") {
		return fmt.Errorf("output.pubsub.project_id and output.pubsub.topic must be set together")
	}
	return nil
}

// CrawlConfig converts the crawler section into the engine's configuration.
func (c Config) CrawlConfig() crawler.Config {
	return crawler.Config{
		SeedURL:        c.Crawler.SeedURL,
		DomainFilter:   c.Crawler.DomainFilter,
		ExcludeHosts:   append([]string(nil), c.Crawler.ExcludeHosts...),
		MaxDepth:       c.Crawler.MaxDepth,
		MaxConcurrency: c.Crawler.Concurrency,
		RequestTimeout: c.Crawler.RequestTimeout,
	}
}
