package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/krtrends/marketpulse/app/cfg"
	"github.com/krtrends/marketpulse/app/digest"
	"github.com/krtrends/marketpulse/app/ingest"
	"github.com/krtrends/marketpulse/app/summary"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler drives the background pipeline: periodic ingestion runs plus one
// summary-and-digest task per day at the configured local hour.
type Scheduler struct {
	runner      *ingest.Runner
	summaries   *summary.Service
	dispatcher  *digest.Dispatcher
	interval    time.Duration
	digestHour  int
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(runner *ingest.Runner, summaries *summary.Service, dispatcher *digest.Dispatcher) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		runner:      runner,
		summaries:   summaries,
		dispatcher:  dispatcher,
		interval:    time.Duration(cfg.IngestInterval) * time.Hour,
		digestHour:  cfg.DigestHour,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 100),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueIngest()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueIngest()
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			wait := time.Until(nextDigestTime(time.Now(), s.digestHour))
			slog.Debug("Next daily digest scheduled", "in", wait.String())

			select {
			case <-s.ctx.Done():
				return
			case <-time.After(wait):
				task := NewDailyDigestTask(s.summaries, s.dispatcher)
				if err := s.EnqueueTask(task); err != nil {
					slog.Warn("Failed to enqueue DailyDigestTask", "error", err)
				}
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueIngest() {
	if err := s.EnqueueTask(NewIngestTask(s.runner)); err != nil {
		slog.Warn("Failed to enqueue IngestTask", "error", err)
	}
}

// nextDigestTime returns the next occurrence of hour on the local clock,
// strictly after now.
func nextDigestTime(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 10*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID,
		"type", string(task.GetType()), "id", task.GetID(),
		"retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()),
			"id", task.GetID(), "retry_count", task.GetRetryCount(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
	if retryDelay > 30*time.Second {
		retryDelay = 30 * time.Second
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()),
		"retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(),
		"delay", retryDelay.String())

	go func() {
		time.Sleep(retryDelay)
		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		default:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()),
					"id", task.GetID(), "error", retryErr)
			}
		}
	}()
}
