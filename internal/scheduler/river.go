package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"

	"github.com/aussie-warriors/awbot/internal/observability"
	"github.com/aussie-warriors/awbot/internal/observability/attr"
)

// jobTimeout bounds a single cycle of any task.
const jobTimeout = 10 * time.Minute

// TaskArgs is the river job for one cycle of a task.
type TaskArgs struct {
	Task string `json:"task"`
}

// Kind returns the job type identifier for River.
func (TaskArgs) Kind() string { return "periodic_task" }

// InsertOpts routes each task to its own queue. A cycle is not enqueued
// while another cycle of the same task is still waiting or running.
func (a TaskArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueName(a.Task),
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRetryable,
				rivertype.JobStateRunning,
				rivertype.JobStateScheduled,
			},
		},
	}
}

// QueueName is the dedicated queue of a task.
func QueueName(task string) string {
	return "task_" + task
}

type taskWorker struct {
	river.WorkerDefaults[TaskArgs]
	runner *Runner
}

func (w *taskWorker) Work(ctx context.Context, job *river.Job[TaskArgs]) error {
	ctx = attr.WithCorrelationID(ctx, fmt.Sprintf("job-%d", job.ID))
	return w.runner.Run(ctx, job.Args.Task)
}

// PeriodicJobs builds one periodic job per task. Tasks run once on start.
func PeriodicJobs(tasks []Task) ([]*river.PeriodicJob, error) {
	jobs := make([]*river.PeriodicJob, 0, len(tasks))
	for _, t := range tasks {
		sched, err := ParseSchedule(t.Schedule)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", t.Name, err)
		}
		args := TaskArgs{Task: t.Name}
		jobs = append(jobs, river.NewPeriodicJob(sched, func() (river.JobArgs, *river.InsertOpts) {
			return args, nil
		}, &river.PeriodicJobOpts{RunOnStart: true}))
	}
	return jobs, nil
}

// Queues gives every task a single worker so its cycles never overlap.
func Queues(tasks []Task) map[string]river.QueueConfig {
	queues := make(map[string]river.QueueConfig, len(tasks)+1)
	queues[river.QueueDefault] = river.QueueConfig{MaxWorkers: 1}
	for _, t := range tasks {
		queues[QueueName(t.Name)] = river.QueueConfig{MaxWorkers: 1}
	}
	return queues
}

// Scheduler owns the river client and its pgx pool.
type Scheduler struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewPool opens the pgx pool river needs; bun's database/sql handle cannot
// back a river driver.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// New builds the river client for tasks. The pool is closed by Stop.
func New(pool *pgxpool.Pool, tasks []Task, runner *Runner, obs observability.Observability) (*Scheduler, error) {
	logger := obs.Logger.With(attr.String("component", "river_scheduler"))

	periodic, err := PeriodicJobs(tasks)
	if err != nil {
		return nil, err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &taskWorker{runner: runner})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:       Queues(tasks),
		Workers:      workers,
		PeriodicJobs: periodic,
		JobTimeout:   jobTimeout,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	logger.Info("Scheduler initialized", attr.Int("tasks", len(tasks)))
	return &Scheduler{client: client, pool: pool, logger: logger, metrics: obs.Metrics}, nil
}

// Start starts fetching and running jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", "river")
	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	s.metrics.RecordOperationDuration(ctx, "start_service", "river", time.Since(start))
	s.logger.Info("Scheduler started")
	return nil
}

// Stop waits for running jobs to finish, then closes the pool.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("Stopping scheduler")
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.logger.Info("Scheduler stopped")
	return nil
}

// Migrate applies river's own schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), &rivermigrate.Config{Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("failed to migrate river schema: %w", err)
	}
	for _, v := range res.Versions {
		logger.Info("Applied river migration", attr.Int("version", v.Version))
	}
	return nil
}
