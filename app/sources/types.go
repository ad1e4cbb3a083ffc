package sources

import "time"

// Source types supported by the ingestion pipeline.
const (
	TypeHTML = "html"
	TypeAPI  = "api"
	TypeFeed = "feed"
)

// Config describes one source declaratively: where to fetch, how to extract
// and how to categorize. One YAML file per source.
type Config struct {
	Name       string        `yaml:"-"` // derived from filename (without extension)
	Source     Info          `yaml:"source"`
	Settings   Settings      `yaml:"settings"`
	Extract    *ExtractRules `yaml:"extract"`
	API        *APIRules     `yaml:"api"`
	Categories CategoryRules `yaml:"categories"`
}

type Info struct {
	// Label is the human-readable source name persisted on every item and
	// hashed into item identity. Changing it orphans existing documents.
	Label   string `yaml:"label"`
	Type    string `yaml:"type"`
	BaseURL string `yaml:"base_url"`
	// URLs lists the pages to crawl for HTML sources or the feed URL for
	// feed sources. Defaults to [base_url] when empty.
	URLs []string `yaml:"urls"`
}

type Settings struct {
	Enabled     bool `yaml:"enabled"`
	Timeout     int  `yaml:"timeout"` // seconds
	MaxItems    int  `yaml:"max_items"`
	MinTitleLen int  `yaml:"min_title_len"`
	PageDelayMs int  `yaml:"page_delay_ms"`
}

// ExtractRules drives the selector-cascade engine for HTML sources.
type ExtractRules struct {
	// Selectors are tried in order against the parsed document; the first
	// one yielding at least MinMatches elements wins.
	Selectors  []string `yaml:"selectors"`
	MinMatches int      `yaml:"min_matches"`

	// SkipMarker drops extracted titles containing this substring, e.g.
	// pinned notice rows on board layouts.
	SkipMarker string `yaml:"skip_marker"`

	Fields FieldRules `yaml:"fields"`

	AnchorFallback  *AnchorFallback  `yaml:"anchor_fallback"`
	HeadingFallback *HeadingFallback `yaml:"heading_fallback"`
}

// FieldRules lists per-field sub-selectors, tried in priority order within
// each matched element; the first non-empty text wins.
type FieldRules struct {
	Title       []string `yaml:"title"`
	Price       []string `yaml:"price"`
	Description []string `yaml:"description"`
	Link        []string `yaml:"link"`
}

// AnchorFallback scans all anchors when no selector matched, keeping those
// whose visible text length is inside [MinTextLen, MaxTextLen] and whose
// href contains LinkPattern.
type AnchorFallback struct {
	LinkPattern string `yaml:"link_pattern"`
	MinTextLen  int    `yaml:"min_text_len"`
	MaxTextLen  int    `yaml:"max_text_len"`
}

// HeadingFallback scans h2/h3/h4 elements for board-like pages, using the
// nearest enclosing block as the scope for price/description/link lookup.
type HeadingFallback struct {
	MinTitleLen        int    `yaml:"min_title_len"`
	NoticeMarker       string `yaml:"notice_marker"`
	DefaultDescription string `yaml:"default_description"`
}

// APIRules describes a JSON API source: one form-encoded request per
// category code, openads-style.
type APIRules struct {
	Endpoint      string        `yaml:"endpoint"`
	DetailURL     string        `yaml:"detail_url"` // printf format receiving the native item ID
	CategoryParam string        `yaml:"category_param"`
	Categories    []APICategory `yaml:"category_codes"`
}

type APICategory struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// CategoryRules is the ordered keyword table; earlier rules take priority.
type CategoryRules struct {
	Default  string        `yaml:"default"`
	Keywords []KeywordRule `yaml:"keywords"`
}

type KeywordRule struct {
	Match    string `yaml:"match"`
	Category string `yaml:"category"`
}

// GetTimeout returns the per-source fetch timeout as time.Duration.
func (s *Settings) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}

// GetPageDelay returns the courtesy delay between successive requests to the
// same multi-page source.
func (s *Settings) GetPageDelay() time.Duration {
	if s.PageDelayMs <= 0 {
		return time.Second
	}
	return time.Duration(s.PageDelayMs) * time.Millisecond
}
