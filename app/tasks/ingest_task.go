package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/krtrends/marketpulse/app/ingest"
)

// IngestTask runs one collection pass over the selected source types. An
// empty type list covers every source.
type IngestTask struct {
	Task
	runner *ingest.Runner
	types  []string
}

func NewIngestTask(runner *ingest.Runner, types ...string) *IngestTask {
	return &IngestTask{
		Task:   NewTask(TaskTypeIngest),
		runner: runner,
		types:  types,
	}
}

func (t *IngestTask) Execute(ctx context.Context) error {
	stats := t.runner.Run(ctx, t.types...)

	if stats.Sources > 0 && stats.Errors == stats.Sources {
		return fmt.Errorf("all %d sources failed", stats.Sources)
	}

	slog.Debug("Ingest task finished", "id", t.GetID(),
		"sources", stats.Sources, "items", stats.Items, "duration", t.GetDuration().String())
	return nil
}
