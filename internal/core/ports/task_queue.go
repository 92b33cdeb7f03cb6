package ports

import (
	"context"
	"strings"
	"time"
)

// Task is a unit of detached background work.
//
// Tasks are delivered at least once: a failing Run is retried and a task
// may run again after a crash, so Run must tolerate repetition. A task
// never rolls back the operation that submitted it.
type Task struct {
	// ID identifies the work itself. Resubmitting work that already ran
	// under the same ID is skipped, so it must be derived from the
	// occurrence it handles rather than generated per submission.
	ID string
	// Name labels logs and metrics (for example "rotate_nonce").
	Name string
	// ShardKey keeps tasks with the same key in submission order.
	ShardKey string
	// Timeout bounds each attempt. Zero selects the queue default.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// TaskID joins name and the parts identifying one occurrence of the work.
func TaskID(name string, parts ...string) string {
	return strings.Join(append([]string{name}, parts...), ":")
}

// TaskQueue accepts background work without waiting for it.
type TaskQueue interface {
	Submit(task Task)
}
