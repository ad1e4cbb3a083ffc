package tasks

// TaskSchedulerInterface defines the interface for background task
// scheduling. The main application starts it once and the workers drain the
// queue until Stop.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
