package worker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/formbank-backend/internal/service"
	"github.com/stemsi/formbank-backend/internal/testutil"
)

type fakeWarmer struct {
	mu     sync.Mutex
	calls  []string
	warmFn func(id string) error
}

func (f *fakeWarmer) WarmCache(_ context.Context, id string) error {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if f.warmFn == nil {
		return nil
	}
	return f.warmFn(id)
}

// newTestWorker returns a worker on a private queue with no retry delay.
func newTestWorker(t *testing.T, rdb *redis.Client, warmer Warmer, log zerolog.Logger) *CacheWarmWorker {
	t.Helper()
	w := NewCacheWarmWorker(rdb, warmer, log)
	w.queue = "test:warm:" + uuid.NewString()
	w.retryDelay = 0
	t.Cleanup(func() { rdb.Del(context.Background(), w.queue) })
	return w
}

func queued(t *testing.T, rdb *redis.Client, queue string) []string {
	t.Helper()
	items, err := rdb.LRange(context.Background(), queue, 0, -1).Result()
	if err != nil {
		t.Fatalf("LRange failed: %v", err)
	}
	return items
}

func TestCacheWarmWorkerProcessNext(t *testing.T) {
	tests := []struct {
		name       string
		warmErr    error
		wantQueued []string
	}{
		{name: "warmed", warmErr: nil, wantQueued: nil},
		{name: "bank deleted", warmErr: service.ErrBankNotFound, wantQueued: nil},
		{name: "requeued on error", warmErr: errors.New("database unavailable"), wantQueued: []string{"bank-1"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			rdb := testutil.Redis(t)
			warmer := &fakeWarmer{warmFn: func(string) error { return tc.warmErr }}
			w := newTestWorker(t, rdb, warmer, testutil.Logger())

			if err := rdb.RPush(ctx, w.queue, "bank-1").Err(); err != nil {
				t.Fatalf("RPush failed: %v", err)
			}
			w.processNext(ctx)

			if len(warmer.calls) != 1 || warmer.calls[0] != "bank-1" {
				t.Errorf("warm calls = %v", warmer.calls)
			}
			got := queued(t, rdb, w.queue)
			if len(got) != len(tc.wantQueued) {
				t.Fatalf("queue = %v, want %v", got, tc.wantQueued)
			}
			for i := range got {
				if got[i] != tc.wantQueued[i] {
					t.Errorf("queue = %v, want %v", got, tc.wantQueued)
				}
			}
		})
	}
}

func TestCacheWarmWorkerLogsFailedRequeue(t *testing.T) {
	ctx := context.Background()
	shared := testutil.Redis(t)

	// The worker gets its own client, closed mid-warm so the requeue fails.
	rdb := redis.NewClient(shared.Options())
	warmer := &fakeWarmer{warmFn: func(string) error {
		rdb.Close()
		return errors.New("database unavailable")
	}}

	var logs bytes.Buffer
	w := newTestWorker(t, shared, warmer, zerolog.New(&logs))
	w.rdb = rdb

	if err := shared.RPush(ctx, w.queue, "bank-1").Err(); err != nil {
		t.Fatalf("RPush failed: %v", err)
	}
	w.processNext(ctx)

	if !strings.Contains(logs.String(), "Failed to requeue bank") {
		t.Errorf("missing requeue failure log in %s", logs.String())
	}
	if got := queued(t, shared, w.queue); len(got) != 0 {
		t.Errorf("queue = %v, want empty", got)
	}
}

func TestCacheWarmWorkerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		NewCacheWarmWorker(nil, &fakeWarmer{}, testutil.Logger()).Start(ctx)
		close(done)
	}()
	<-done
}
