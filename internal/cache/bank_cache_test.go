package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/formbank-backend/internal/config"
	"github.com/stemsi/formbank-backend/internal/model"
	"github.com/stemsi/formbank-backend/internal/testutil"
)

// newBankID returns an ID whose keys are removed when the test ends.
func newBankID(t *testing.T, c *RedisBankCache) string {
	t.Helper()
	id := "test-" + uuid.NewString()
	t.Cleanup(func() {
		c.rdb.Del(context.Background(), config.CacheKey.BankTreeKey(id), config.CacheKey.BankGenerationKey(id))
	})
	return id
}

func bankWithID(title, id string) *model.QuestionBank {
	bank := testutil.SingleChoiceBank(title)
	bank.ID = id
	return bank
}

func TestRedisBankCacheMissAndHit(t *testing.T) {
	ctx := context.Background()
	c := NewRedisBankCache(testutil.Redis(t), time.Minute)
	id := newBankID(t, c)

	got, err := c.Get(ctx, id)
	if err != nil || got != nil {
		t.Fatalf("Get on miss = %v, %v; want nil, nil", got, err)
	}

	gen, err := c.Generation(ctx, id)
	if err != nil || gen != 0 {
		t.Fatalf("Generation = %d, %v; want 0", gen, err)
	}
	if err := c.Set(ctx, bankWithID("Cached", id), gen); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err = c.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.Title != "Cached" || len(got.Pages) != 1 {
		t.Fatalf("Get = %+v", got)
	}
	if ttl := c.rdb.TTL(ctx, config.CacheKey.BankTreeKey(id)).Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("tree ttl = %v", ttl)
	}
}

func TestRedisBankCacheDropsCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c := NewRedisBankCache(testutil.Redis(t), time.Minute)
	id := newBankID(t, c)
	key := config.CacheKey.BankTreeKey(id)

	if err := c.rdb.Set(ctx, key, "{not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed corrupt entry failed: %v", err)
	}

	if _, err := c.Get(ctx, id); err == nil {
		t.Fatal("Get on corrupt entry returned no error")
	}
	if n := c.rdb.Exists(ctx, key).Val(); n != 0 {
		t.Error("corrupt entry was not dropped")
	}
}

func TestRedisBankCacheSkipsStaleGeneration(t *testing.T) {
	ctx := context.Background()
	c := NewRedisBankCache(testutil.Redis(t), time.Minute)
	id := newBankID(t, c)

	stale, err := c.Generation(ctx, id)
	if err != nil {
		t.Fatalf("Generation failed: %v", err)
	}
	if err := c.Invalidate(ctx, id); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	current, err := c.Generation(ctx, id)
	if err != nil || current != stale+1 {
		t.Fatalf("Generation after invalidate = %d, %v; want %d", current, err, stale+1)
	}

	if err := c.Set(ctx, bankWithID("Old", id), stale); err != nil {
		t.Fatalf("stale Set failed: %v", err)
	}
	if got, _ := c.Get(ctx, id); got != nil {
		t.Fatal("tree with a stale generation was stored")
	}

	if err := c.Set(ctx, bankWithID("New", id), current); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got, _ := c.Get(ctx, id); got == nil || got.Title != "New" {
		t.Errorf("Get = %+v, want the current tree", got)
	}

	if err := c.Invalidate(ctx, id); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if got, _ := c.Get(ctx, id); got != nil {
		t.Error("tree survived invalidation")
	}
}

func TestRedisBankCacheScheduleWarm(t *testing.T) {
	ctx := context.Background()
	c := NewRedisBankCache(testutil.Redis(t), time.Minute)
	id := newBankID(t, c)
	queue := config.WorkerKey.WarmBankCacheQueue
	t.Cleanup(func() { c.rdb.LRem(context.Background(), queue, 0, id) })

	if err := c.ScheduleWarm(ctx, id); err != nil {
		t.Fatalf("ScheduleWarm failed: %v", err)
	}
	queued, err := c.rdb.LRange(ctx, queue, 0, -1).Result()
	if err != nil {
		t.Fatalf("LRange failed: %v", err)
	}
	found := false
	for _, q := range queued {
		if q == id {
			found = true
		}
	}
	if !found {
		t.Errorf("%s not queued in %v", id, queued)
	}
}
