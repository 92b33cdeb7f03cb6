package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/chainsocial/social-api/internal/api/metrics"
	"github.com/chainsocial/social-api/internal/core/ports"
)

const (
	defaultWorkers     = 8
	defaultMaxAttempts = 3
	defaultTaskTimeout = 2 * time.Minute
	channelBuffer      = 256
	retryBackoff       = 500 * time.Millisecond
)

var errTaskPanicked = errors.New("task panicked")

// Ledger remembers completed tasks so redelivered ones are skipped.
type Ledger interface {
	IsDone(ctx context.Context, taskID string) (bool, error)
	MarkDone(ctx context.Context, taskID string) error
}

// Options tunes a Dispatcher. Zero values fall back to defaults.
type Options struct {
	Workers     int
	MaxAttempts int
	TaskTimeout time.Duration
}

// Dispatcher runs background tasks on a fixed set of workers. Tasks are
// routed by consistent hashing on their shard key, so tasks for the same
// user run in submission order.
type Dispatcher struct {
	workers     []chan ports.Task
	ledger      Ledger
	maxAttempts int
	taskTimeout time.Duration
	log         zerolog.Logger
}

// NewDispatcher creates a Dispatcher. ledger may be nil, in which case
// redelivered tasks are not deduplicated.
func NewDispatcher(opts Options, ledger Ledger, log zerolog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = defaultTaskTimeout
	}
	d := &Dispatcher{
		workers:     make([]chan ports.Task, opts.Workers),
		ledger:      ledger,
		maxAttempts: opts.MaxAttempts,
		taskTimeout: opts.TaskTimeout,
		log:         log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.Task, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Submit hands task to the worker responsible for its shard key. It never
// blocks: when the worker already holds channelBuffer tasks the new one is
// dropped and counted.
func (d *Dispatcher) Submit(task ports.Task) {
	idx := d.shardIndex(task.ShardKey)
	select {
	case d.workers[idx] <- task:
	default:
		metrics.BackgroundTasksTotal.WithLabelValues(task.Name, "dropped").Inc()
		d.log.Warn().
			Str("task", task.Name).
			Str("task_id", task.ID).
			Int("worker_id", idx).
			Msg("task queue full, task dropped")
	}
	metrics.TaskQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// shardIndex maps a shard key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.Task) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-ch:
			if !ok {
				return
			}
			metrics.TaskQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))
			d.process(ctx, id, task)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, workerID int, task ports.Task) {
	if d.ledger != nil && task.ID != "" {
		done, err := d.ledger.IsDone(ctx, task.ID)
		if err != nil {
			d.log.Warn().Err(err).Str("task", task.Name).Str("task_id", task.ID).Msg("task ledger check failed, running anyway")
		} else if done {
			metrics.BackgroundTasksTotal.WithLabelValues(task.Name, "skipped").Inc()
			return
		}
	}

	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err = d.run(ctx, task); err == nil {
			break
		}
		d.log.Warn().
			Err(err).
			Str("task", task.Name).
			Str("task_id", task.ID).
			Int("attempt", attempt).
			Int("worker_id", workerID).
			Msg("background task failed")

		if attempt < d.maxAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}
	}

	if err != nil {
		metrics.BackgroundTasksTotal.WithLabelValues(task.Name, "failed").Inc()
		d.log.Error().Err(err).Str("task", task.Name).Str("task_id", task.ID).Str("shard", task.ShardKey).Msg("background task abandoned")
		return
	}

	metrics.BackgroundTasksTotal.WithLabelValues(task.Name, "ok").Inc()
	if d.ledger != nil && task.ID != "" {
		if markErr := d.ledger.MarkDone(ctx, task.ID); markErr != nil {
			d.log.Warn().Err(markErr).Str("task", task.Name).Str("task_id", task.ID).Msg("failed to mark task done")
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, task ports.Task) (err error) {
	timeout := d.taskTimeout
	if task.Timeout > 0 {
		timeout = task.Timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("task", task.Name).Msg("background task panicked")
			err = errTaskPanicked
		}
	}()
	return task.Run(runCtx)
}
