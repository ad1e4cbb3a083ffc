// Package feed ingests RSS and Atom sources into canonical items.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/krtrends/marketpulse/app/extract"
	"github.com/krtrends/marketpulse/app/fetch"
	"github.com/krtrends/marketpulse/app/item"
	"github.com/krtrends/marketpulse/app/sources"
)

var inlineImage = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["']`)

// Adapter fetches a feed source and maps its entries to canonical items.
// Feed descriptions arrive as HTML fragments, so they are sanitized down to
// plain text before truncation.
type Adapter struct {
	client    *fetch.Client
	parser    *gofeed.Parser
	sanitizer *bluemonday.Policy
}

func NewAdapter(client *fetch.Client) *Adapter {
	return &Adapter{
		client:    client,
		parser:    gofeed.NewParser(),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (a *Adapter) Run(ctx context.Context, cfg *sources.Config) ([]item.Item, error) {
	feedURL := cfg.Source.BaseURL
	if len(cfg.Source.URLs) > 0 {
		feedURL = cfg.Source.URLs[0]
	}

	body, err := a.client.Bytes(ctx, feedURL, cfg.Settings.GetTimeout())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	parsed, err := a.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	categorizer := extract.NewCategorizer(cfg.Categories)
	items := make([]item.Item, 0, len(parsed.Items))

	for _, entry := range parsed.Items {
		title := item.TruncateTitle(item.CleanText(entry.Title))
		if title == "" {
			continue
		}

		items = append(items, item.Item{
			Kind:         item.KindArticle,
			Source:       cfg.Source.Label,
			Title:        title,
			Description:  a.plainDescription(entry),
			Category:     categorizer.Run(title, entry.Description),
			SourceURL:    entry.Link,
			ThumbnailURL: thumbnail(entry),
			Author:       authorName(entry),
			PublishedAt:  entry.PublishedParsed,
		})

		if len(items) >= cfg.Settings.MaxItems {
			break
		}
	}

	return items, nil
}

func (a *Adapter) plainDescription(entry *gofeed.Item) string {
	text := entry.Description
	if text == "" {
		text = entry.Content
	}
	text = html.UnescapeString(a.sanitizer.Sanitize(text))
	return item.TruncateDescription(item.CleanText(text))
}

// thumbnail picks the entry image with a fixed preference order:
// media:content, then an image enclosure, then the first inline <img>.
func thumbnail(entry *gofeed.Item) string {
	if media, ok := entry.Extensions["media"]; ok {
		for _, ext := range media["content"] {
			if u := ext.Attrs["url"]; u != "" {
				return u
			}
		}
		for _, ext := range media["thumbnail"] {
			if u := ext.Attrs["url"]; u != "" {
				return u
			}
		}
	}

	for _, enc := range entry.Enclosures {
		if enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}

	for _, raw := range []string{entry.Content, entry.Description} {
		if m := inlineImage.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
	}

	if entry.Image != nil {
		return entry.Image.URL
	}
	return ""
}

func authorName(entry *gofeed.Item) string {
	for _, author := range entry.Authors {
		if author.Name != "" {
			return author.Name
		}
	}
	return ""
}
