package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/krtrends/marketpulse/app/digest"
	"github.com/krtrends/marketpulse/app/summary"
)

// DailyDigestTask synthesizes the day's summary and then mails the digest.
// The two steps run in one task so the email always carries the summary that
// was just written.
type DailyDigestTask struct {
	Task
	summaries  *summary.Service
	dispatcher *digest.Dispatcher
}

func NewDailyDigestTask(summaries *summary.Service, dispatcher *digest.Dispatcher) *DailyDigestTask {
	return &DailyDigestTask{
		Task:       NewTask(TaskTypeDailyDigest),
		summaries:  summaries,
		dispatcher: dispatcher,
	}
}

func (t *DailyDigestTask) Execute(ctx context.Context) error {
	now := time.Now()

	if _, err := t.summaries.Run(ctx, now); err != nil {
		return err
	}

	result, err := t.dispatcher.Run(ctx, now)
	if err != nil {
		return err
	}

	slog.Debug("Daily digest task finished", "id", t.GetID(),
		"status", result.Status, "sent", result.Sent, "duration", t.GetDuration().String())
	return nil
}
