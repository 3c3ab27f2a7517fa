package corpus

import (
	"context"
	"errors"
	"io"
	"log"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vouch/testimonials/internal/testimonial"
)

// fakeSource counts loads and serves a fixed corpus.
type fakeSource struct {
	mu      sync.Mutex
	entries []testimonial.Entry
	err     error
	loads   int
}

func (f *fakeSource) Recent(_ context.Context, _ string, limit int) ([]testimonial.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.entries) > limit {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeSource) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

// newTestClient connects to local Redis DB 15 and flushes it. Tests that
// call this helper require a running Redis on localhost:6379.
func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})
	return client
}

func newTestCache(client *redis.Client, src Source) *Cache {
	c := NewCache(client, src, 10, time.Minute)
	c.SetLogger(log.New(io.Discard, "", 0))
	return c
}

func TestContents_ReadThrough(t *testing.T) {
	client := newTestClient(t)
	src := &fakeSource{entries: []testimonial.Entry{
		{ID: "t3", Content: "third"},
		{ID: "t2", Content: "second"},
		{ID: "t1", Content: "first"},
	}}
	cache := newTestCache(client, src)
	ctx := context.Background()

	got, err := cache.Contents(ctx, "p1", "t2")
	if err != nil {
		t.Fatalf("Contents: %v", err)
	}
	if want := []string{"third", "first"}; !slices.Equal(got, want) {
		t.Errorf("Contents = %v, want %v", got, want)
	}

	got, err = cache.Contents(ctx, "p1", "")
	if err != nil {
		t.Fatalf("Contents: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Contents = %v, want 3 entries", got)
	}
	if n := src.loadCount(); n != 1 {
		t.Errorf("source loaded %d times, want 1", n)
	}

	ttl := client.TTL(ctx, KeyPrefix+"p1").Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want within (0, 1m]", ttl)
	}
}

func TestInvalidate(t *testing.T) {
	client := newTestClient(t)
	src := &fakeSource{entries: []testimonial.Entry{{ID: "t1", Content: "first"}}}
	cache := newTestCache(client, src)
	ctx := context.Background()

	if _, err := cache.Contents(ctx, "p1", ""); err != nil {
		t.Fatal(err)
	}
	if err := cache.Invalidate(ctx, "p1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := cache.Contents(ctx, "p1", ""); err != nil {
		t.Fatal(err)
	}
	if n := src.loadCount(); n != 2 {
		t.Errorf("source loaded %d times, want 2", n)
	}
}

func TestContents_CorruptEntryReloads(t *testing.T) {
	client := newTestClient(t)
	src := &fakeSource{entries: []testimonial.Entry{{ID: "t1", Content: "first"}}}
	cache := newTestCache(client, src)
	ctx := context.Background()

	client.Set(ctx, KeyPrefix+"p1", "not msgpack", time.Minute)

	got, err := cache.Contents(ctx, "p1", "")
	if err != nil {
		t.Fatalf("Contents: %v", err)
	}
	if !slices.Equal(got, []string{"first"}) {
		t.Errorf("Contents = %v, want [first]", got)
	}
}

func TestContents_SourceErrorPropagates(t *testing.T) {
	client := newTestClient(t)
	boom := errors.New("connection refused")
	cache := newTestCache(client, &fakeSource{err: boom})

	if _, err := cache.Contents(context.Background(), "p1", ""); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped source error", err)
	}
}

func TestContents_RedisDownFailsOpen(t *testing.T) {
	// Nothing listens on this port, so every Redis call fails.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	defer client.Close()

	src := &fakeSource{entries: []testimonial.Entry{{ID: "t1", Content: "first"}}}
	cache := newTestCache(client, src)

	got, err := cache.Contents(context.Background(), "p1", "")
	if err != nil {
		t.Fatalf("Contents with Redis down: %v", err)
	}
	if !slices.Equal(got, []string{"first"}) {
		t.Errorf("Contents = %v, want [first]", got)
	}
}
