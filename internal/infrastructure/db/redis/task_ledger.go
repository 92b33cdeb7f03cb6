package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultLedgerTTL = 24 * time.Hour

// TaskLedger records completed background tasks in Redis so a redelivered
// task is not run twice.
// Key format: task:done:<task_id>
type TaskLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTaskLedger creates a TaskLedger wrapping the given Redis client. Marks
// expire after ttl, or a day when ttl is not positive.
func NewTaskLedger(client *redis.Client, ttl time.Duration) *TaskLedger {
	if ttl <= 0 {
		ttl = defaultLedgerTTL
	}
	return &TaskLedger{client: client, ttl: ttl}
}

// IsDone reports whether the task has already completed.
func (l *TaskLedger) IsDone(ctx context.Context, taskID string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(taskID)).Result()
	if err != nil {
		return false, fmt.Errorf("task ledger check: %w", err)
	}
	return n > 0, nil
}

// MarkDone records that the task completed.
func (l *TaskLedger) MarkDone(ctx context.Context, taskID string) error {
	return l.client.Set(ctx, l.key(taskID), "1", l.ttl).Err()
}

func (l *TaskLedger) key(taskID string) string {
	return fmt.Sprintf("task:done:%s", taskID)
}
