package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/joseph-ayodele/attendance-tracker/internal/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingProcessor struct {
	mu    sync.Mutex
	paths []string
	fail  map[string]bool
	delay time.Duration
}

func (r *recordingProcessor) ProcessFile(ctx context.Context, path string) (pipeline.Result, error) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return pipeline.Result{}, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	if r.fail[path] {
		return pipeline.Result{}, errors.New("boom")
	}
	return pipeline.Result{}, nil
}

func (r *recordingProcessor) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

var discard = slog.New(slog.DiscardHandler)

func TestQueueProcessesEveryJobBeforeShutdownReturns(t *testing.T) {
	proc := &recordingProcessor{fail: map[string]bool{"b.pdf": true}}
	q := NewProcessorQueue(proc, discard, WithWorkers(3), WithQueueSize(1))

	for _, p := range []string{"a.pdf", "b.pdf", "c.png", "d.xlsx"} {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}
	q.Shutdown(context.Background())

	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf", "c.png", "d.xlsx"}, proc.seen())
}

func TestQueueEnqueueAfterShutdownIsDropped(t *testing.T) {
	proc := &recordingProcessor{}
	q := NewProcessorQueue(proc, discard)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "late.pdf"}))
	assert.Empty(t, proc.seen())
}

func TestQueueEnqueueHonoursContextWhenFull(t *testing.T) {
	proc := &recordingProcessor{delay: 200 * time.Millisecond}
	q := NewProcessorQueue(proc, discard, WithWorkers(1), WithQueueSize(1))
	defer q.Shutdown(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "1.pdf"}))
	// wait for the worker to take the first job so the buffer slot is free
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "2.pdf"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Job{Path: "3.pdf"}), context.DeadlineExceeded)
}

func TestQueueAppliesProcessTimeout(t *testing.T) {
	proc := &recordingProcessor{delay: time.Second}
	q := NewProcessorQueue(proc, discard, WithWorkers(1), WithProcessTimeout(10*time.Millisecond))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow.pdf"}))
	start := time.Now()
	q.Shutdown(context.Background())

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Empty(t, proc.seen())
}
