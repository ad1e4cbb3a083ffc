// Package summary synthesizes the daily digest text from recently collected
// items, preferring the language model and falling back to a template.
package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/krtrends/marketpulse/app/database"
	"github.com/krtrends/marketpulse/app/llm"
)

// SummaryPrefix is the required opening of the headline sentence. The model
// is instructed to produce it and the fallback template emits it verbatim.
const SummaryPrefix = "오늘의 한국 마케팅 동향: "

const maxInsights = 3

// Synthesizer produces the day's headline sentence plus up to three insight
// bullets. The model name is recorded with the stored summary.
type Synthesizer interface {
	Synthesize(ctx context.Context, items []database.Item) (summary string, insights []string, model string, err error)
}

// ModelBacked asks the language model for the day's summary.
type ModelBacked struct {
	client *llm.Client
}

func NewModelBacked(client *llm.Client) *ModelBacked {
	return &ModelBacked{client: client}
}

func (m *ModelBacked) Synthesize(ctx context.Context, items []database.Item) (string, []string, string, error) {
	text, err := m.client.Complete(ctx, buildPrompt(items), 1024)
	if err != nil {
		return "", nil, "", err
	}

	summary, insights := parseResponse(text)
	if summary == "" {
		return "", nil, "", fmt.Errorf("model returned an empty summary")
	}
	return summary, insights, m.client.Model(), nil
}

// TemplateFallback builds the summary from counts alone. Used when no model
// credentials are configured or the model call fails.
type TemplateFallback struct{}

func (TemplateFallback) Synthesize(_ context.Context, items []database.Item) (string, []string, string, error) {
	newCount := 0
	categoryCounts := make(map[string]int)
	for _, it := range items {
		if it.IsNew {
			newCount++
		}
		if it.Category != "" {
			categoryCounts[it.Category]++
		}
	}

	summary := fmt.Sprintf("%s신규 %d건을 포함해 총 %d건의 소식이 수집되었습니다.",
		SummaryPrefix, newCount, len(items))

	return summary, topCategoryInsights(categoryCounts), "", nil
}

func topCategoryInsights(counts map[string]int) []string {
	type entry struct {
		category string
		count    int
	}
	entries := make([]entry, 0, len(counts))
	for category, count := range counts {
		entries = append(entries, entry{category, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].category < entries[j].category
	})

	var insights []string
	for _, e := range entries {
		if len(insights) >= maxInsights {
			break
		}
		insights = append(insights, fmt.Sprintf("%s 분야에서 %d건이 수집되었습니다.", e.category, e.count))
	}
	return insights
}

func buildPrompt(items []database.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "다음은 오늘 수집된 한국 마케팅 업계 소식 %d건입니다.\n\n", len(items))

	for i, it := range items {
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, it.Source, it.Title)
		if it.Description != "" {
			fmt.Fprintf(&b, " - %s", it.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n위 소식을 바탕으로 응답을 작성해 주세요.\n")
	fmt.Fprintf(&b, "첫 줄은 \"%s\"로 시작하는 한 문장 요약이어야 합니다.\n", strings.TrimSpace(SummaryPrefix))
	fmt.Fprintf(&b, "이어서 \"- \"로 시작하는 핵심 인사이트를 %d개 작성해 주세요.\n", maxInsights)
	b.WriteString("다른 설명이나 머리말은 넣지 마세요.")
	return b.String()
}

// parseResponse reads the first non-blank line as the summary and collects up
// to three following dash lines as insights. Anything else is ignored.
func parseResponse(text string) (string, []string) {
	var summary string
	var insights []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if summary == "" {
			summary = line
			continue
		}
		if strings.HasPrefix(line, "- ") && len(insights) < maxInsights {
			insights = append(insights, strings.TrimSpace(strings.TrimPrefix(line, "- ")))
		}
	}
	return summary, insights
}
