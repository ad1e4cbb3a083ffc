package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/araddon/dateparse"

	"github.com/krtrends/marketpulse/app/fetch"
	"github.com/krtrends/marketpulse/app/item"
	"github.com/krtrends/marketpulse/app/sources"
)

// Wire format of the content-listing API (openads-style): a form-encoded
// POST per category code answered with {success, message: [...]}.
type apiResponse struct {
	Success bool         `json:"success"`
	Message []apiContent `json:"message"`
}

type apiContent struct {
	ContsID         int64  `json:"contsId"`
	Title           string `json:"title"`
	SubCategoryName string `json:"subCategoryName"`
	ThumbFilePath   string `json:"thumbFilePath"`
	ThumbFileName   string `json:"thumbFileName"`
	AuthorName      string `json:"authorName"`
	MagneName       string `json:"magneName"`
	PubDtime        string `json:"pubDtime"` // e.g. "2026.02.23 11:38"
}

// APIAdapter ingests JSON API sources: one request per declared category
// code, native-ID dedup, then the shared canonicalization rules.
type APIAdapter struct {
	client *fetch.Client
}

func NewAPIAdapter(client *fetch.Client) *APIAdapter {
	return &APIAdapter{client: client}
}

func (a *APIAdapter) Run(ctx context.Context, cfg *sources.Config) ([]item.Item, error) {
	rules := cfg.API
	timeout := cfg.Settings.GetTimeout()

	var contents []apiContent
	var lastErr error
	for _, category := range rules.Categories {
		form := url.Values{
			rules.CategoryParam: {category.Code},
			"contsType":         {""},
		}

		var resp apiResponse
		if err := a.client.PostFormJSON(ctx, rules.Endpoint, form, &resp, timeout); err != nil {
			// One broken category must not sink the others.
			slog.Warn("API category fetch failed",
				"source", cfg.Source.Label, "category", category.Name, "error", err)
			lastErr = err
			continue
		}

		if !resp.Success {
			continue
		}
		contents = append(contents, resp.Message...)
	}

	if len(contents) == 0 && lastErr != nil {
		return nil, fmt.Errorf("all category requests failed: %w", lastErr)
	}

	return a.canonicalize(dedupByNativeID(contents), cfg), nil
}

// dedupByNativeID keeps the first occurrence per native content ID. The same
// item can appear under several category codes; this dedup happens before
// identity derivation, which only sees (source, title).
func dedupByNativeID(contents []apiContent) []apiContent {
	seen := make(map[int64]bool, len(contents))
	unique := contents[:0]
	for _, c := range contents {
		if seen[c.ContsID] {
			continue
		}
		seen[c.ContsID] = true
		unique = append(unique, c)
	}
	return unique
}

func (a *APIAdapter) canonicalize(contents []apiContent, cfg *sources.Config) []item.Item {
	categorizer := NewCategorizer(cfg.Categories)
	items := make([]item.Item, 0, len(contents))

	for _, c := range contents {
		title := item.TruncateTitle(item.CleanText(c.Title))
		if title == "" {
			continue
		}

		author := c.AuthorName
		if author == "" {
			author = c.MagneName
		}

		items = append(items, item.Item{
			Kind:         item.KindArticle,
			Source:       cfg.Source.Label,
			Title:        title,
			Category:     categorizer.Run(title, ""),
			Subcategory:  c.SubCategoryName,
			Author:       author,
			SourceURL:    fmt.Sprintf(rulesDetailURL(cfg), c.ContsID),
			ThumbnailURL: thumbnailURL(c.ThumbFilePath, c.ThumbFileName),
			PublishedAt:  parsePublishTime(c.PubDtime),
		})

		if len(items) >= cfg.Settings.MaxItems {
			break
		}
	}

	return items
}

func rulesDetailURL(cfg *sources.Config) string {
	if cfg.API.DetailURL != "" {
		return cfg.API.DetailURL
	}
	return cfg.Source.BaseURL + "?id=%d"
}

// thumbnailURL joins the API's path and filename fields; the filename needs
// URL encoding (Korean filenames are common).
func thumbnailURL(path, name string) string {
	if path == "" || name == "" {
		return ""
	}
	return path + url.QueryEscape(name)
}

func parsePublishTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.ParseInLocation("2006.01.02 15:04", s, time.Local); err == nil {
		return &t
	}
	if t, err := dateparse.ParseIn(s, time.Local); err == nil {
		return &t
	}
	return nil
}
