package item

import (
	"strings"
	"time"
)

// Kind separates marketing service listings (HTML catalog/board sources)
// from trend articles (feed and JSON API sources).
type Kind string

const (
	KindListing Kind = "listing"
	KindArticle Kind = "article"
)

// Coarse topic categories assigned by keyword matching.
const (
	CategoryViral     = "viral"
	CategoryReview    = "review"
	CategoryTraffic   = "traffic"
	CategorySNS       = "sns"
	CategoryNaver     = "naver"
	CategoryEcommerce = "ecommerce"
	CategoryTrend     = "trend"
	CategoryNews      = "news"
)

const (
	MaxTitleLen       = 100
	MaxDescriptionLen = 300
)

// Item is the canonical record every adapter produces. Price is nil when the
// source does not expose one; zero is a real price.
type Item struct {
	ID           string
	Kind         Kind
	Source       string
	Title        string
	Description  string
	Price        *int64
	Category     string
	SourceURL    string
	ThumbnailURL string
	Author       string
	Subcategory  string
	AISummary    string
	PublishedAt  *time.Time
}

// CleanText collapses whitespace runs into single spaces and trims.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateTitle caps a title at MaxTitleLen runes.
func TruncateTitle(s string) string {
	return truncateRunes(s, MaxTitleLen)
}

// TruncateDescription caps a description at MaxDescriptionLen runes.
func TruncateDescription(s string) string {
	return truncateRunes(s, MaxDescriptionLen)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
