package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/krtrends/marketpulse/app/item"
	"github.com/krtrends/marketpulse/app/llm"
)

// maxItemSummaries bounds model spend per source run.
const maxItemSummaries = 10

// ItemSummarizer optionally annotates collected items with a short AI
// summary before they are committed. Nil disables the feature.
type ItemSummarizer interface {
	Annotate(ctx context.Context, items []item.Item)
}

type LLMSummarizer struct {
	client *llm.Client
}

func NewLLMSummarizer(client *llm.Client) *LLMSummarizer {
	return &LLMSummarizer{client: client}
}

// Annotate fills AISummary on article items that have a description to work
// from. Model failures only cost the annotation, never the item.
func (s *LLMSummarizer) Annotate(ctx context.Context, items []item.Item) {
	annotated := 0
	for i := range items {
		if annotated >= maxItemSummaries {
			return
		}
		if items[i].Kind != item.KindArticle || items[i].Description == "" {
			continue
		}

		prompt := fmt.Sprintf(
			"다음 한국 마케팅 업계 기사를 두세 문장으로 요약해 주세요. 요약 내용만 답하세요.\n\n제목: %s\n내용: %s",
			items[i].Title, items[i].Description)

		text, err := s.client.Complete(ctx, prompt, 256)
		if err != nil {
			slog.Warn("Item summary failed", "title", items[i].Title, "error", err)
			continue
		}
		items[i].AISummary = item.CleanText(text)
		annotated++
	}
}
