package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/krtrends/marketpulse/app/fetch"
	"github.com/krtrends/marketpulse/app/item"
	"github.com/krtrends/marketpulse/app/sources"
)

func feedConfig(baseURL string) *sources.Config {
	return &sources.Config{
		Name: "trendblog",
		Source: sources.Info{
			Label:   "트렌드 블로그",
			Type:    sources.TypeFeed,
			BaseURL: baseURL,
		},
		Settings:   sources.Settings{MaxItems: 20, Timeout: 5},
		Categories: sources.CategoryRules{Default: item.CategoryTrend},
	}
}

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
	<title>트렌드 블로그</title>
	<item>
		<title>2026년 마케팅 트렌드 전망</title>
		<link>https://blog.example.com/posts/1</link>
		<description><![CDATA[<p>올해 주목할 <b>다섯 가지</b> 흐름 &amp; 전략</p>]]></description>
		<author>editor@example.com (박에디터)</author>
		<pubDate>Mon, 23 Feb 2026 09:00:00 +0900</pubDate>
		<media:content url="https://blog.example.com/img/media.jpg" type="image/jpeg"/>
	</item>
	<item>
		<title>뉴스레터 성장 사례</title>
		<link>https://blog.example.com/posts/2</link>
		<description><![CDATA[구독자 확보 전략 <img src="https://blog.example.com/img/inline.png"> 정리]]></description>
	</item>
	<item>
		<title>이미지 동봉 기사</title>
		<link>https://blog.example.com/posts/3</link>
		<enclosure url="https://blog.example.com/img/enclosure.jpg" type="image/jpeg" length="1000"/>
	</item>
</channel>
</rss>`

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		fmt.Fprint(w, body)
	}))
}

func TestAdapter_Run(t *testing.T) {
	srv := serveFeed(t, sampleRSS)
	defer srv.Close()

	adapter := NewAdapter(fetch.NewClient(srv.Client(), "test-agent"))
	items, err := adapter.Run(context.Background(), feedConfig(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	first := items[0]
	if first.Kind != item.KindArticle {
		t.Errorf("expected article kind, got %q", first.Kind)
	}
	if first.Title != "2026년 마케팅 트렌드 전망" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if first.Description != "올해 주목할 다섯 가지 흐름 & 전략" {
		t.Errorf("HTML not stripped from description: %q", first.Description)
	}
	if first.Category != item.CategoryTrend {
		t.Errorf("expected default category trend, got %q", first.Category)
	}
	if first.PublishedAt == nil {
		t.Error("expected pubDate to be parsed")
	}
	if first.ThumbnailURL != "https://blog.example.com/img/media.jpg" {
		t.Errorf("expected media:content thumbnail, got %q", first.ThumbnailURL)
	}

	if items[1].ThumbnailURL != "https://blog.example.com/img/inline.png" {
		t.Errorf("expected inline image thumbnail, got %q", items[1].ThumbnailURL)
	}
	if items[2].ThumbnailURL != "https://blog.example.com/img/enclosure.jpg" {
		t.Errorf("expected enclosure thumbnail, got %q", items[2].ThumbnailURL)
	}
}

func TestAdapter_Run_CapsEntries(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>t</title>`)
	for i := range 35 {
		fmt.Fprintf(&b, `<item><title>기사 번호 %d번 소식입니다</title><link>https://blog.example.com/posts/%d</link></item>`, i, i)
	}
	b.WriteString(`</channel></rss>`)

	srv := serveFeed(t, b.String())
	defer srv.Close()

	adapter := NewAdapter(fetch.NewClient(srv.Client(), "test-agent"))
	items, err := adapter.Run(context.Background(), feedConfig(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 20 {
		t.Fatalf("expected feed cap of 20 items, got %d", len(items))
	}
}

func TestAdapter_Run_TruncatesDescription(t *testing.T) {
	long := strings.Repeat("가", 800)
	body := `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>t</title>` +
		`<item><title>긴 본문 기사</title><link>https://blog.example.com/x</link><description>` + long + `</description></item>` +
		`</channel></rss>`

	srv := serveFeed(t, body)
	defer srv.Close()

	adapter := NewAdapter(fetch.NewClient(srv.Client(), "test-agent"))
	items, err := adapter.Run(context.Background(), feedConfig(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if n := utf8.RuneCountInString(items[0].Description); n != item.MaxDescriptionLen {
		t.Errorf("expected description truncated to %d runes, got %d", item.MaxDescriptionLen, n)
	}
}

func TestAdapter_Run_UnreachableFeed(t *testing.T) {
	srv := serveFeed(t, "")
	srv.Close()

	adapter := NewAdapter(fetch.NewClient(http.DefaultClient, "test-agent"))
	if _, err := adapter.Run(context.Background(), feedConfig(srv.URL)); err == nil {
		t.Fatal("expected an error for an unreachable feed")
	}
}
