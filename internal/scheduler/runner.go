// Package scheduler runs the bot's periodic tasks on river.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussie-warriors/awbot/internal/clashapi"
	"github.com/aussie-warriors/awbot/internal/eventbus"
	"github.com/aussie-warriors/awbot/internal/observability"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
)

// ErrUnknownTask is returned for a job naming a task that is not registered.
var ErrUnknownTask = errors.New("unknown task")

// Task is one periodic job.
type Task struct {
	Name     string
	Schedule string
	// Enabled gates each run. A nil Enabled always runs.
	Enabled func() bool
	Run     func(ctx context.Context) error
}

// TaskLogger records task runs.
type TaskLogger interface {
	StartTask(ctx context.Context, name string) (int64, error)
	FinishTask(ctx context.Context, id int64, runErr error) error
}

// Runner executes tasks by name.
type Runner struct {
	tasks     map[string]Task
	log       TaskLogger
	publisher eventbus.Publisher
	logger    *slog.Logger
	metrics   observability.Metrics
}

// NewRunner indexes tasks by name. Duplicate names are an error.
func NewRunner(tasks []Task, log TaskLogger, publisher eventbus.Publisher, logger *slog.Logger, metrics observability.Metrics) (*Runner, error) {
	byName := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		if t.Run == nil {
			return nil, fmt.Errorf("task %q has no run func", t.Name)
		}
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("task %q registered twice", t.Name)
		}
		byName[t.Name] = t
	}
	return &Runner{
		tasks:     byName,
		log:       log,
		publisher: publisher,
		logger:    logger.With(attr.String("component", "scheduler")),
		metrics:   metrics,
	}, nil
}

// Run executes one cycle of the named task. A failed cycle is recorded and
// reported to the operator channel, then returned.
func (r *Runner) Run(ctx context.Context, name string) (err error) {
	task, ok := r.tasks[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	logger := r.logger.With(attr.String("task", name))
	if task.Enabled != nil && !task.Enabled() {
		logger.DebugContext(ctx, "Task disabled, skipping")
		return nil
	}

	runID, logErr := r.log.StartTask(ctx, name)
	if logErr != nil {
		logger.WarnContext(ctx, "Failed to record task start", attr.Error(logErr))
	}

	start := time.Now()
	r.metrics.RecordOperationAttempt(ctx, name, "scheduler")
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in task %s: %v", name, p)
		}
		r.metrics.RecordOperationDuration(ctx, name, "scheduler", time.Since(start))
		r.finish(ctx, logger, name, runID, err)
	}()

	return task.Run(ctx)
}

func (r *Runner) finish(ctx context.Context, logger *slog.Logger, name string, runID int64, err error) {
	if runID != 0 {
		if logErr := r.log.FinishTask(ctx, runID, err); logErr != nil {
			logger.WarnContext(ctx, "Failed to record task outcome", attr.Error(logErr))
		}
	}

	if err == nil {
		r.metrics.RecordOperationSuccess(ctx, name, "scheduler")
		logger.InfoContext(ctx, "Task completed")
		return
	}

	r.metrics.RecordOperationFailure(ctx, name, "scheduler")
	logger.ErrorContext(ctx, "Task failed", attr.Error(err))
	if pubErr := r.publisher.Publish(ctx, eventbus.TopicOperatorAlert, FailureNotice(name, err)); pubErr != nil {
		logger.WarnContext(ctx, "Failed to publish task alert", attr.Error(pubErr))
	}
}

// FailureNotice renders a failed cycle for the operator channel.
func FailureNotice(name string, err error) eventbus.Notice {
	return eventbus.Notice{
		Title:       "Task failed: " + name,
		Description: clashapi.Describe(err),
		Color:       eventbus.ColorRed,
		Fields:      []eventbus.Field{{Name: "Next attempt", Value: "The next scheduled run retries."}},
	}
}

