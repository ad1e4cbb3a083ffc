package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/krtrends/marketpulse/app/database"
	"github.com/krtrends/marketpulse/app/item"
)

func intPtr(v int64) *int64 {
	return &v
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		input    *int64
		expected string
	}{
		{nil, ""},
		{intPtr(0), "0원"},
		{intPtr(900), "900원"},
		{intPtr(450000), "450,000원"},
		{intPtr(12345678), "12,345,678원"},
	}
	for _, tc := range tests {
		if got := formatPrice(tc.input); got != tc.expected {
			t.Errorf("formatPrice(%v) = %q, expected %q", tc.input, got, tc.expected)
		}
	}
}

func TestBuilder_Build(t *testing.T) {
	summary := &database.DailySummary{
		Summary:  "오늘의 한국 마케팅 동향: 리뷰 마케팅이 활발합니다.",
		Insights: []string{"체험단 단가 하락", "숏폼 광고 확대"},
	}
	listings := []database.Item{
		{
			ID: "aiqdfm", Kind: string(item.KindListing), Source: "크몽",
			Title: "네이버 블로그 리뷰 20건", Price: intPtr(450000),
			PriceChanged: true, PreviousPrice: intPtr(500000),
			SourceURL: "https://kmong.com/gig/1", IsNew: true,
		},
	}
	articles := []database.Item{
		{
			ID: "rss-abc", Kind: string(item.KindArticle), Source: "트렌드 블로그",
			Title: "2026년 마케팅 트렌드 전망", Author: "박에디터",
			SourceURL: "https://blog.example.com/posts/1",
		},
	}

	builder := NewBuilder("https://koreanmarketing.news")
	subject, body, err := builder.Build("2026-02-23", summary, listings, articles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if subject != "[한국 마케팅 뉴스] 2026-02-23 데일리 다이제스트" {
		t.Errorf("unexpected subject %q", subject)
	}
	for _, want := range []string{
		"오늘의 한국 마케팅 동향: 리뷰 마케팅이 활발합니다.",
		"체험단 단가 하락",
		"네이버 블로그 리뷰 20건",
		"450,000원",
		"(이전 500,000원)",
		"NEW",
		"2026년 마케팅 트렌드 전망",
		"박에디터",
		"https://koreanmarketing.news",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("digest body missing %q", want)
		}
	}
}

func TestBuilder_Build_CapsSections(t *testing.T) {
	var listings, articles []database.Item
	for range 30 {
		listings = append(listings, database.Item{Kind: string(item.KindListing), Title: "상품"})
	}
	for range 15 {
		articles = append(articles, database.Item{Kind: string(item.KindArticle), Title: "기사"})
	}

	builder := NewBuilder("")
	_, body, err := builder.Build("2026-02-23", nil, listings, articles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Count(body, ">상품</a>"); got != maxListings {
		t.Errorf("expected %d listings rendered, got %d", maxListings, got)
	}
	if got := strings.Count(body, ">기사</a>"); got != maxArticles {
		t.Errorf("expected %d articles rendered, got %d", maxArticles, got)
	}
}

type stubItemRepo struct {
	items []database.Item
}

func (s *stubItemRepo) UpsertBatch([]item.Item, time.Time) (database.UpsertStats, error) {
	return database.UpsertStats{}, nil
}
func (s *stubItemRepo) GetRecentItems(time.Time, int) ([]database.Item, error) {
	return s.items, nil
}
func (s *stubItemRepo) GetRecentItemsByKind(kind string, _ time.Time, limit int) ([]database.Item, error) {
	var matched []database.Item
	for _, it := range s.items {
		if it.Kind != kind {
			continue
		}
		matched = append(matched, it)
		if len(matched) >= limit {
			break
		}
	}
	return matched, nil
}
func (s *stubItemRepo) GetItemCount() (int, error)                      { return len(s.items), nil }
func (s *stubItemRepo) GetSourceCounts() (map[string]int, error)        { return nil, nil }
func (s *stubItemRepo) ExpireNewFlags(string, time.Time) (int64, error) { return 0, nil }

type stubSummaryRepo struct{}

func (stubSummaryRepo) Upsert(database.DailySummary) error { return nil }
func (stubSummaryRepo) GetByDate(string) (*database.DailySummary, error) {
	return nil, nil
}
func (stubSummaryRepo) GetLatest() (*database.DailySummary, error) { return nil, nil }

type stubSubscriberRepo struct {
	subscribers []database.Subscriber
}

func (s *stubSubscriberRepo) GetActiveSubscribers() ([]database.Subscriber, error) {
	return s.subscribers, nil
}

type stubRunLogRepo struct {
	logs []database.RunLog
}

func (s *stubRunLogRepo) Record(log database.RunLog) error {
	s.logs = append(s.logs, log)
	return nil
}
func (s *stubRunLogRepo) GetRecent(int) ([]database.RunLog, error) { return s.logs, nil }

type stubSender struct {
	sent     []string
	lastBody string
	failFor  map[string]bool
}

func (s *stubSender) Send(_ context.Context, to, _, body string) error {
	if s.failFor[to] {
		return errors.New("delivery refused")
	}
	s.sent = append(s.sent, to)
	s.lastBody = body
	return nil
}

func newTestDispatcher(items *stubItemRepo, subscribers *stubSubscriberRepo, sender *stubSender, runLogs *stubRunLogRepo) *Dispatcher {
	return NewDispatcher(items, stubSummaryRepo{}, subscribers, runLogs, sender, NewBuilder(""))
}

func TestDispatcher_Run(t *testing.T) {
	items := &stubItemRepo{items: []database.Item{{Kind: string(item.KindArticle), Title: "기사"}}}
	subscribers := &stubSubscriberRepo{subscribers: []database.Subscriber{
		{Email: "a@example.com"}, {Email: "b@example.com"},
	}}
	sender := &stubSender{}
	runLogs := &stubRunLogRepo{}

	result, err := newTestDispatcher(items, subscribers, sender, runLogs).Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusSent || result.Sent != 2 || result.Failed != 0 {
		t.Errorf("unexpected result %+v", result)
	}
	if len(sender.sent) != 2 {
		t.Errorf("expected 2 deliveries, got %v", sender.sent)
	}
	if len(runLogs.logs) != 1 || runLogs.logs[0].Action != "digest" {
		t.Fatalf("expected a digest run log, got %+v", runLogs.logs)
	}
	log := runLogs.logs[0]
	if log.Sent != 2 || log.Failed != 0 || log.Subscribers != 2 {
		t.Errorf("run log must carry delivery counts, got %+v", log)
	}
	if log.ItemsTotal != 1 {
		t.Errorf("run log must carry the content count, got %d", log.ItemsTotal)
	}
}

func TestDispatcher_Run_NoSenderConfigured(t *testing.T) {
	items := &stubItemRepo{items: []database.Item{{Kind: string(item.KindArticle), Title: "기사"}}}
	subscribers := &stubSubscriberRepo{subscribers: []database.Subscriber{{Email: "a@example.com"}}}
	runLogs := &stubRunLogRepo{}

	dispatcher := NewDispatcher(items, stubSummaryRepo{}, subscribers, runLogs, nil, NewBuilder(""))
	result, err := dispatcher.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusSkipped || result.Reason != "email delivery not configured" {
		t.Errorf("missing mail credentials must skip the run, got %+v", result)
	}
	if len(runLogs.logs) != 1 || runLogs.logs[0].Status != StatusSkipped {
		t.Errorf("expected a skipped run log, got %+v", runLogs.logs)
	}
}

func TestDispatcher_Run_ListingsSurviveArticleBurst(t *testing.T) {
	var stored []database.Item
	for i := range 30 {
		stored = append(stored, database.Item{
			Kind: string(item.KindArticle), Title: fmt.Sprintf("기사 %d", i),
		})
	}
	stored = append(stored, database.Item{Kind: string(item.KindListing), Title: "카페 바이럴 패키지"})

	items := &stubItemRepo{items: stored}
	subscribers := &stubSubscriberRepo{subscribers: []database.Subscriber{{Email: "a@example.com"}}}
	sender := &stubSender{}

	result, err := newTestDispatcher(items, subscribers, sender, &stubRunLogRepo{}).Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusSent {
		t.Fatalf("unexpected result %+v", result)
	}
	if !strings.Contains(sender.lastBody, "카페 바이럴 패키지") {
		t.Error("a burst of articles must not push listings out of the digest")
	}
	if strings.Count(sender.lastBody, ">기사 ") != maxArticles {
		t.Errorf("expected the article section capped at %d", maxArticles)
	}
}

func TestDispatcher_Run_NoSubscribers(t *testing.T) {
	items := &stubItemRepo{items: []database.Item{{Kind: string(item.KindArticle), Title: "기사"}}}
	sender := &stubSender{}
	runLogs := &stubRunLogRepo{}

	result, err := newTestDispatcher(items, &stubSubscriberRepo{}, sender, runLogs).Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusSkipped {
		t.Errorf("expected skipped status, got %q", result.Status)
	}
	if len(sender.sent) != 0 {
		t.Errorf("skipped run must not send mail, sent to %v", sender.sent)
	}
	if len(runLogs.logs) != 1 || runLogs.logs[0].Status != StatusSkipped {
		t.Errorf("expected a skipped run log, got %+v", runLogs.logs)
	}
}

func TestDispatcher_Run_NoContent(t *testing.T) {
	subscribers := &stubSubscriberRepo{subscribers: []database.Subscriber{{Email: "a@example.com"}}}
	sender := &stubSender{}

	result, err := newTestDispatcher(&stubItemRepo{}, subscribers, sender, &stubRunLogRepo{}).Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusSkipped {
		t.Errorf("expected skipped status, got %q", result.Status)
	}
	if len(sender.sent) != 0 {
		t.Errorf("empty day must not send mail, sent to %v", sender.sent)
	}
}

func TestDispatcher_Run_PartialFailure(t *testing.T) {
	items := &stubItemRepo{items: []database.Item{{Kind: string(item.KindArticle), Title: "기사"}}}
	subscribers := &stubSubscriberRepo{subscribers: []database.Subscriber{
		{Email: "a@example.com"}, {Email: "broken@example.com"}, {Email: "c@example.com"},
	}}
	sender := &stubSender{failFor: map[string]bool{"broken@example.com": true}}

	result, err := newTestDispatcher(items, subscribers, sender, &stubRunLogRepo{}).Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("one failed recipient must not fail the run: %v", err)
	}
	if result.Status != StatusPartial || result.Sent != 2 || result.Failed != 1 {
		t.Errorf("unexpected result %+v", result)
	}
}
