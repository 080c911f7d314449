package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskify/backend/internal/monitoring"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var errNotDue = errors.New("job not due yet")

type JobHandler func(ctx context.Context, job *Job) error

type Worker struct {
	client       *redis.Client
	handlers     map[JobType]JobHandler
	queues       []string
	pollInterval time.Duration
	retryBase    time.Duration
	jobTimeout   time.Duration
	log          zerolog.Logger
	now          func() time.Time

	mu     sync.RWMutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Config struct {
	RedisClient *redis.Client
	Queues      []string
	// PollInterval bounds how long a single BLPOP waits.
	PollInterval time.Duration
	// RetryBase is scaled by 2^attempts to get the delay before a retry.
	RetryBase  time.Duration
	JobTimeout time.Duration
	Log        zerolog.Logger
}

func NewWorker(cfg Config) *Worker {
	if len(cfg.Queues) == 0 {
		cfg.Queues = []string{QueueNotifications, QueueMaintenance, QueueRetry}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Minute
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}

	return &Worker{
		client:       cfg.RedisClient,
		handlers:     make(map[JobType]JobHandler),
		queues:       cfg.Queues,
		pollInterval: cfg.PollInterval,
		retryBase:    cfg.RetryBase,
		jobTimeout:   cfg.JobTimeout,
		log:          cfg.Log,
		now:          time.Now,
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

// Start launches concurrency goroutines that consume jobs until ctx is
// cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.log.Info().Int("concurrency", concurrency).Strs("queues", w.queues).Msg("Starting worker")
	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx)
	}
}

func (w *Worker) Stop() {
	w.log.Info().Msg("Stopping worker")
	w.mu.RLock()
	cancel := w.cancel
	w.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
	w.log.Info().Msg("Worker stopped")
}

func (w *Worker) workerLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := w.processNextJob(ctx)
		switch {
		case err == nil:
		case errors.Is(err, errNotDue):
			w.sleep(ctx, time.Second)
		case ctx.Err() != nil:
			return
		default:
			w.log.Error().Err(err).Msg("Error processing job")
			w.sleep(ctx, time.Second)
		}
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// processNextJob pops at most one job and runs it. A timeout with nothing to
// pop returns nil.
func (w *Worker) processNextJob(ctx context.Context) error {
	result, err := w.client.BLPop(ctx, w.pollInterval, w.queues...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("pop job: %w", err)
	}
	if len(result) < 2 {
		return fmt.Errorf("invalid pop result: %v", result)
	}

	queue, data := result[0], result[1]

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		w.log.Error().Err(err).Str("queue", queue).Msg("Dropping undecodable job")
		monitoring.RecordJob("unknown", "dead")
		return nil
	}

	if w.now().Before(job.ProcessAt) {
		if err := push(ctx, w.client, queue, &job); err != nil {
			return err
		}
		return errNotDue
	}

	return w.executeJob(ctx, &job)
}

func (w *Worker) executeJob(ctx context.Context, job *Job) error {
	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	log := w.log.With().Str("job_id", job.ID).Str("job_type", string(job.Type)).Logger()

	if !exists {
		log.Error().Msg("No handler registered for job type")
		monitoring.RecordJob(string(job.Type), "dead")
		return w.moveToDeadQueue(ctx, job, fmt.Errorf("no handler registered for job type %s", job.Type))
	}

	log.Debug().Int("attempt", job.Attempts+1).Msg("Processing job")

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	err := handler(jobCtx, job)
	cancel()

	if err == nil {
		monitoring.RecordJob(string(job.Type), "ok")
		log.Debug().Msg("Job completed")
		return nil
	}

	job.Attempts++
	if job.Attempts < job.MaxTries {
		log.Warn().Err(err).Int("attempt", job.Attempts).Int("max_tries", job.MaxTries).Msg("Job failed, retrying")
		monitoring.RecordJob(string(job.Type), "retry")
		return w.retryJob(ctx, job)
	}

	log.Error().Err(err).Int("attempts", job.Attempts).Msg("Job failed permanently")
	monitoring.RecordJob(string(job.Type), "dead")
	return w.moveToDeadQueue(ctx, job, err)
}

func (w *Worker) retryJob(ctx context.Context, job *Job) error {
	delay := w.retryBase * time.Duration(1<<job.Attempts)
	job.ProcessAt = w.now().Add(delay)
	return push(ctx, w.client, QueueRetry, job)
}

func (w *Worker) moveToDeadQueue(ctx context.Context, job *Job, jobErr error) error {
	return push(ctx, w.client, QueueDead, DeadJob{
		Job:      job,
		Error:    jobErr.Error(),
		FailedAt: w.now(),
	})
}
