package extract

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/krtrends/marketpulse/app/item"
	"github.com/krtrends/marketpulse/app/sources"
)

var (
	pricePattern    = regexp.MustCompile(`[\d,]+원`)
	trailingPrice   = regexp.MustCompile(`[\d,]+원.*`)
	headingPriceSel = `[class*="price"], .cost, strong`
)

// Engine turns a parsed HTML page into canonical items, driven entirely by
// the source's declarative extraction rules. It never fails: broken or
// restructured markup degrades to an empty result, which the caller records
// as a successful run with zero counts.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

type candidate struct {
	title       string
	description string
	price       *int64
	link        string
}

// Run applies the selector cascade first; when no selector yields enough
// elements it falls back to the anchor scan and then the heading scan.
func (e *Engine) Run(doc *goquery.Document, cfg *sources.Config) []item.Item {
	rules := cfg.Extract

	var candidates []candidate
	if sel := e.matchCascade(doc, rules); sel != nil {
		candidates = e.extractElements(sel, rules)
	} else {
		if rules.AnchorFallback != nil {
			candidates = e.anchorScan(doc, rules.AnchorFallback)
		}
		if len(candidates) == 0 && rules.HeadingFallback != nil {
			candidates = e.headingScan(doc, rules.HeadingFallback)
		}
	}

	return e.finalize(candidates, cfg)
}

// matchCascade tries each configured selector in order and returns the first
// selection with at least MinMatches elements.
func (e *Engine) matchCascade(doc *goquery.Document, rules *sources.ExtractRules) *goquery.Selection {
	for _, selector := range rules.Selectors {
		found := doc.Find(selector)
		if found.Length() >= rules.MinMatches {
			return found
		}
	}
	return nil
}

func (e *Engine) extractElements(sel *goquery.Selection, rules *sources.ExtractRules) []candidate {
	var candidates []candidate

	sel.Each(func(_ int, el *goquery.Selection) {
		c := candidate{
			title:       firstText(el, rules.Fields.Title),
			description: firstText(el, rules.Fields.Description),
			price:       ParsePrice(firstText(el, rules.Fields.Price)),
			link:        firstHref(el, rules.Fields.Link),
		}
		candidates = append(candidates, c)
	})

	return candidates
}

// anchorScan is the structured fallback: keep anchors whose visible text
// length is plausible for a listing and whose href matches the source's link
// pattern; a trailing price token is split off the title.
func (e *Engine) anchorScan(doc *goquery.Document, fb *sources.AnchorFallback) []candidate {
	var candidates []candidate

	doc.Find("a").Each(func(_ int, el *goquery.Selection) {
		text := item.CleanText(el.Text())
		href, _ := el.Attr("href")

		length := utf8.RuneCountInString(text)
		if length < fb.MinTextLen || length > fb.MaxTextLen {
			return
		}
		if fb.LinkPattern != "" && !strings.Contains(href, fb.LinkPattern) {
			return
		}

		candidates = append(candidates, candidate{
			title: item.CleanText(trailingPrice.ReplaceAllString(text, "")),
			price: ParsePrice(pricePattern.FindString(text)),
			link:  href,
		})
	})

	return candidates
}

// headingScan is the board-page fallback: each heading becomes a candidate,
// with the nearest enclosing block as the scope for price, description and
// link lookup. Notices and too-short headings are skipped.
func (e *Engine) headingScan(doc *goquery.Document, fb *sources.HeadingFallback) []candidate {
	var candidates []candidate

	doc.Find("h2, h3, h4").Each(func(_ int, el *goquery.Selection) {
		title := item.CleanText(el.Text())
		if utf8.RuneCountInString(title) < fb.MinTitleLen {
			return
		}
		if fb.NoticeMarker != "" && strings.Contains(title, fb.NoticeMarker) {
			return
		}

		scope := el.Closest("section, div, li, article")
		description := item.CleanText(scope.Find("p").First().Text())
		if description == "" {
			description = fb.DefaultDescription
		}
		link, _ := scope.Find("a").First().Attr("href")

		candidates = append(candidates, candidate{
			title:       title,
			description: description,
			price:       ParsePrice(item.CleanText(scope.Find(headingPriceSel).First().Text())),
			link:        link,
		})
	})

	return candidates
}

// finalize enforces the shared adapter contract: minimum title length,
// truncation, categorization, absolute links, within-run title dedup and the
// per-source cap.
func (e *Engine) finalize(candidates []candidate, cfg *sources.Config) []item.Item {
	categorizer := NewCategorizer(cfg.Categories)
	seen := make(map[string]bool)
	items := make([]item.Item, 0, len(candidates))

	for _, c := range candidates {
		title := item.TruncateTitle(item.CleanText(c.title))
		if utf8.RuneCountInString(title) < cfg.Settings.MinTitleLen {
			continue
		}
		if cfg.Extract.SkipMarker != "" && strings.Contains(title, cfg.Extract.SkipMarker) {
			continue
		}
		if seen[title] {
			continue
		}
		seen[title] = true

		items = append(items, item.Item{
			Kind:        item.KindListing,
			Source:      cfg.Source.Label,
			Title:       title,
			Description: item.TruncateDescription(item.CleanText(c.description)),
			Price:       c.price,
			Category:    categorizer.Run(title, c.description),
			SourceURL:   ResolveURL(cfg.Source.BaseURL, c.link),
		})

		if len(items) >= cfg.Settings.MaxItems {
			break
		}
	}

	return items
}

// ResolveURL makes a possibly-relative link absolute against the source base.
func ResolveURL(base, link string) string {
	if link == "" {
		return base
	}
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return baseURL.ResolveReference(ref).String()
}

func firstText(el *goquery.Selection, selectors []string) string {
	for _, s := range selectors {
		if text := item.CleanText(el.Find(s).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func firstHref(el *goquery.Selection, selectors []string) string {
	for _, s := range selectors {
		if href, ok := el.Find(s).First().Attr("href"); ok && href != "" {
			return href
		}
	}
	// Cards are often wrapped in the anchor instead of containing one.
	if href, ok := el.Find("a").First().Attr("href"); ok && href != "" {
		return href
	}
	if href, ok := el.Closest("a").Attr("href"); ok {
		return href
	}
	return ""
}
