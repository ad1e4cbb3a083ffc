package digest

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/krtrends/marketpulse/app/database"
)

const (
	maxTopItems = 5
	maxListings = 20
	maxArticles = 10
)

// The inline styles keep the digest readable in mail clients that strip
// style sheets.
const digestTemplate = `<!DOCTYPE html>
<html lang="ko">
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#f4f4f7;font-family:'Apple SD Gothic Neo','Malgun Gothic',sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px;">
  <div style="background-color:#1a73e8;color:#ffffff;padding:20px 24px;border-radius:8px 8px 0 0;">
    <h1 style="margin:0;font-size:20px;">한국 마케팅 뉴스</h1>
    <p style="margin:4px 0 0;font-size:13px;opacity:0.9;">{{.Date}} 데일리 다이제스트</p>
  </div>
  <div style="background-color:#ffffff;padding:24px;border-radius:0 0 8px 8px;">
{{- if .Summary}}
    <h2 style="font-size:16px;margin:0 0 8px;color:#202124;">오늘의 요약</h2>
    <p style="font-size:14px;line-height:1.6;color:#3c4043;margin:0 0 8px;">{{.Summary}}</p>
{{- range .Insights}}
    <p style="font-size:13px;line-height:1.5;color:#5f6368;margin:0 0 4px;">&bull; {{.}}</p>
{{- end}}
{{- end}}
{{- if .Top}}
    <h2 style="font-size:16px;margin:24px 0 8px;color:#202124;">오늘의 주요 소식</h2>
{{- range .Top}}
    <div style="padding:10px 0;border-bottom:1px solid #eeeeee;">
      <a href="{{.SourceURL}}" style="font-size:14px;color:#1a73e8;text-decoration:none;">{{.Title}}</a>
      <p style="font-size:12px;color:#5f6368;margin:4px 0 0;">{{.Source}}{{if .Price}} &middot; {{price .Price}}{{end}}</p>
    </div>
{{- end}}
{{- end}}
{{- if .Listings}}
    <h2 style="font-size:16px;margin:24px 0 8px;color:#202124;">마케팅 상품</h2>
{{- range .Listings}}
    <div style="padding:10px 0;border-bottom:1px solid #eeeeee;">
      <a href="{{.SourceURL}}" style="font-size:14px;color:#202124;text-decoration:none;">{{.Title}}</a>
{{- if .IsNew}} <span style="font-size:11px;color:#ffffff;background-color:#e8453c;border-radius:3px;padding:1px 5px;">NEW</span>{{end}}
      <p style="font-size:12px;color:#5f6368;margin:4px 0 0;">{{.Source}}{{if .Price}} &middot; {{price .Price}}{{end}}{{if .PriceChanged}} (이전 {{price .PreviousPrice}}){{end}}</p>
{{- if .Description}}
      <p style="font-size:12px;color:#80868b;margin:4px 0 0;">{{.Description}}</p>
{{- end}}
    </div>
{{- end}}
{{- end}}
{{- if .Articles}}
    <h2 style="font-size:16px;margin:24px 0 8px;color:#202124;">업계 뉴스</h2>
{{- range .Articles}}
    <div style="padding:10px 0;border-bottom:1px solid #eeeeee;">
      <a href="{{.SourceURL}}" style="font-size:14px;color:#202124;text-decoration:none;">{{.Title}}</a>
      <p style="font-size:12px;color:#5f6368;margin:4px 0 0;">{{.Source}}{{if .Author}} &middot; {{.Author}}{{end}}</p>
    </div>
{{- end}}
{{- end}}
  </div>
  <p style="font-size:11px;color:#9aa0a6;text-align:center;margin:16px 0 0;">
{{- if .SiteURL}}
    <a href="{{.SiteURL}}" style="color:#9aa0a6;">한국 마케팅 뉴스</a>에서 전체 소식을 확인하세요.
{{- else}}
    한국 마케팅 뉴스 데일리 다이제스트
{{- end}}
  </p>
</div>
</body>
</html>`

type templateData struct {
	Date     string
	Summary  string
	Insights []string
	Top      []database.Item
	Listings []database.Item
	Articles []database.Item
	SiteURL  string
}

// Builder renders the digest email. One render per day is shared by every
// recipient.
type Builder struct {
	tmpl    *template.Template
	siteURL string
}

func NewBuilder(siteURL string) *Builder {
	tmpl := template.Must(template.New("digest").Funcs(template.FuncMap{
		"price": formatPrice,
	}).Parse(digestTemplate))
	return &Builder{tmpl: tmpl, siteURL: siteURL}
}

// Build renders the subject and HTML body for one day's digest. Listings and
// articles arrive as separate sections; the top block collects the new items
// across both.
func (b *Builder) Build(date string, summary *database.DailySummary, listings, articles []database.Item) (string, string, error) {
	data := templateData{
		Date:    date,
		SiteURL: b.siteURL,
	}
	if summary != nil {
		data.Summary = summary.Summary
		data.Insights = summary.Insights
	}

	for _, it := range append(append([]database.Item{}, listings...), articles...) {
		if it.IsNew && len(data.Top) < maxTopItems {
			data.Top = append(data.Top, it)
		}
	}
	if len(listings) > maxListings {
		listings = listings[:maxListings]
	}
	if len(articles) > maxArticles {
		articles = articles[:maxArticles]
	}
	data.Listings = listings
	data.Articles = articles

	var body strings.Builder
	if err := b.tmpl.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to render digest: %w", err)
	}

	subject := fmt.Sprintf("[한국 마케팅 뉴스] %s 데일리 다이제스트", date)
	return subject, body.String(), nil
}

// formatPrice renders a stored price with thousands separators, e.g. 450,000원.
func formatPrice(v *int64) string {
	if v == nil {
		return ""
	}

	digits := fmt.Sprintf("%d", *v)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String() + "원"
}
