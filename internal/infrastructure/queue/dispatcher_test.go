package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chainsocial/social-api/internal/api/metrics"
	"github.com/chainsocial/social-api/internal/core/ports"
)

type memoryLedger struct {
	mu   sync.Mutex
	done map[string]bool
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{done: make(map[string]bool)}
}

func (l *memoryLedger) IsDone(_ context.Context, taskID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done[taskID], nil
}

func (l *memoryLedger) MarkDone(_ context.Context, taskID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.done[taskID] = true
	return nil
}

func (l *memoryLedger) isDone(taskID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done[taskID]
}

func startDispatcher(t *testing.T, opts Options, ledger Ledger) *Dispatcher {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	d := NewDispatcher(opts, ledger, zerolog.Nop())
	d.Start(ctx)
	return d
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for task")
	}
}

func TestDispatcher_PreservesOrderPerShard(t *testing.T) {
	d := startDispatcher(t, Options{Workers: 4}, nil)

	var (
		mu    sync.Mutex
		order []int
	)
	finished := make(chan struct{})
	const n = 50
	for i := 0; i < n; i++ {
		i := i
		d.Submit(ports.Task{
			Name:     "ordered",
			ShardKey: "user-1",
			Run: func(context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				if i == n-1 {
					close(finished)
				}
				return nil
			},
		})
	}
	waitFor(t, finished)

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		require.Equal(t, i, v)
	}
}

func TestDispatcher_RetriesUntilSuccess(t *testing.T) {
	ledger := newMemoryLedger()
	d := startDispatcher(t, Options{Workers: 1, MaxAttempts: 3}, ledger)

	var (
		mu       sync.Mutex
		attempts int
	)
	finished := make(chan struct{})
	d.Submit(ports.Task{
		ID:       "t-retry",
		Name:     "flaky",
		ShardKey: "user-1",
		Run: func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			attempts++
			if attempts < 2 {
				return errors.New("temporary")
			}
			close(finished)
			return nil
		},
	})
	waitFor(t, finished)

	require.Eventually(t, func() bool { return ledger.isDone("t-retry") }, 5*time.Second, 10*time.Millisecond)
	mu.Lock()
	require.Equal(t, 2, attempts)
	mu.Unlock()
}

func TestDispatcher_SkipsCompletedTasks(t *testing.T) {
	ledger := newMemoryLedger()
	ledger.done["t-done"] = true
	d := startDispatcher(t, Options{Workers: 1}, ledger)

	ran := make(chan struct{}, 1)
	d.Submit(ports.Task{
		ID:       "t-done",
		Name:     "already_done",
		ShardKey: "user-1",
		Run: func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
	})
	finished := make(chan struct{})
	d.Submit(ports.Task{
		Name:     "marker",
		ShardKey: "user-1",
		Run: func(context.Context) error {
			close(finished)
			return nil
		},
	})
	waitFor(t, finished)

	select {
	case <-ran:
		t.Fatal("completed task should not run again")
	default:
	}
}

func TestDispatcher_RunsSameWorkOnce(t *testing.T) {
	ledger := newMemoryLedger()
	d := startDispatcher(t, Options{Workers: 2}, ledger)

	var (
		mu   sync.Mutex
		runs int
	)
	id := ports.TaskID("rotate_nonce", "user-1", "42")
	for i := 0; i < 3; i++ {
		d.Submit(ports.Task{
			ID:       id,
			Name:     "rotate_nonce",
			ShardKey: "user-1",
			Run: func(context.Context) error {
				mu.Lock()
				runs++
				mu.Unlock()
				return nil
			},
		})
	}
	finished := make(chan struct{})
	d.Submit(ports.Task{
		Name:     "marker",
		ShardKey: "user-1",
		Run: func(context.Context) error {
			close(finished)
			return nil
		},
	})
	waitFor(t, finished)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, runs)
	require.True(t, ledger.isDone("rotate_nonce:user-1:42"))
}

func TestDispatcher_SubmitDoesNotBlockWhenShardIsFull(t *testing.T) {
	d := startDispatcher(t, Options{Workers: 1}, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	d.Submit(ports.Task{
		Name:     "blocker",
		ShardKey: "user-1",
		Run: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
	})
	waitFor(t, started)

	dropped := func() float64 {
		return testutil.ToFloat64(metrics.BackgroundTasksTotal.WithLabelValues("filler", "dropped"))
	}
	before := dropped()

	const extra = 10
	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		for i := 0; i < channelBuffer+extra; i++ {
			d.Submit(ports.Task{Name: "filler", ShardKey: "user-1", Run: func(context.Context) error { return nil }})
		}
	}()
	waitFor(t, submitted)

	require.Equal(t, float64(extra), dropped()-before)
}

func TestDispatcher_HonoursTaskTimeout(t *testing.T) {
	d := startDispatcher(t, Options{Workers: 1, MaxAttempts: 1, TaskTimeout: 20 * time.Millisecond}, nil)

	budgets := make(chan time.Duration, 2)
	record := func(ctx context.Context) error {
		deadline, _ := ctx.Deadline()
		budgets <- time.Until(deadline)
		return nil
	}
	d.Submit(ports.Task{Name: "default_budget", ShardKey: "user-1", Run: record})
	d.Submit(ports.Task{Name: "long_budget", ShardKey: "user-1", Timeout: time.Minute, Run: record})

	var got []time.Duration
	for i := 0; i < 2; i++ {
		select {
		case b := <-budgets:
			got = append(got, b)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for task")
		}
	}
	require.LessOrEqual(t, got[0], 20*time.Millisecond)
	require.Greater(t, got[1], 30*time.Second)
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	d := startDispatcher(t, Options{Workers: 1, MaxAttempts: 1}, nil)

	d.Submit(ports.Task{
		Name:     "panics",
		ShardKey: "user-1",
		Run: func(context.Context) error {
			panic("boom")
		},
	})
	finished := make(chan struct{})
	d.Submit(ports.Task{
		Name:     "after_panic",
		ShardKey: "user-1",
		Run: func(context.Context) error {
			close(finished)
			return nil
		},
	})
	waitFor(t, finished)
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(Options{Workers: 8}, nil, zerolog.Nop())

	first := d.shardIndex("0xabc")
	for i := 0; i < 10; i++ {
		require.Equal(t, first, d.shardIndex("0xabc"))
	}
	require.Less(t, first, 8)
}
