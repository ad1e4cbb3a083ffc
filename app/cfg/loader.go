package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Persistence configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/marketpulse.db" description:"Path to the SQLite database file"`

	// Application configuration
	SourcesDir     string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	Port           string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount    int    `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of background workers for scheduled tasks"`
	IngestInterval int    `long:"ingest-interval" env:"INGEST_INTERVAL" default:"2" description:"Ingestion run interval in hours"`
	DigestHour     int    `long:"digest-hour" env:"DIGEST_HOUR" default:"9" description:"Local hour of day for daily summary and digest"`
	APIToken       string `long:"api-token" env:"API_TOKEN" description:"Shared token for the manual trigger endpoint (optional)"`

	// Outbound integrations
	AnthropicAPIKey string `long:"anthropic-api-key" env:"ANTHROPIC_API_KEY" description:"Anthropic API key for AI summaries (optional)"`
	AnthropicModel  string `long:"anthropic-model" env:"ANTHROPIC_MODEL" default:"claude-haiku-4-5-20251001" description:"Anthropic model for summaries"`
	ItemSummaries   bool   `long:"item-summaries" env:"ITEM_SUMMARIES" description:"Generate per-item AI summaries during ingestion"`
	SendGridAPIKey  string `long:"sendgrid-api-key" env:"SENDGRID_API_KEY" description:"SendGrid API key for digest email (optional)"`
	FromEmail       string `long:"from-email" env:"FROM_EMAIL" default:"noreply@koreanmarketing.news" description:"Digest sender address"`
	FromName        string `long:"from-name" env:"FROM_NAME" default:"한국 마케팅 뉴스" description:"Digest sender display name"`
	SiteURL         string `long:"site-url" env:"SITE_URL" default:"https://koreanmarketing.news" description:"Public site URL linked from the digest"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36" description:"User agent string for outbound HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"Asia/Seoul" description:"Timezone for timestamps and summary dates"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:          raw.DBPath,
		SourcesDir:      raw.SourcesDir,
		Port:            raw.Port,
		WorkerCount:     raw.WorkerCount,
		IngestInterval:  raw.IngestInterval,
		DigestHour:      raw.DigestHour,
		APIToken:        raw.APIToken,
		AnthropicAPIKey: raw.AnthropicAPIKey,
		AnthropicModel:  raw.AnthropicModel,
		ItemSummaries:   raw.ItemSummaries,
		SendGridAPIKey:  raw.SendGridAPIKey,
		FromEmail:       raw.FromEmail,
		FromName:        raw.FromName,
		SiteURL:         raw.SiteURL,
		UserAgent:       raw.UserAgent,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
