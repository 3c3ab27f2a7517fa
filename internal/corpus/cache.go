// Package corpus serves a project's duplicate-detection corpus through a
// Redis read-through cache. Entries are msgpack encoded under
//
//	Key:   corpus:<project_id>
//	Value: msgpack([]entry)
//	TTL:   Cache.ttl
//
// The cache fails open: Redis errors fall through to the source, and only
// a source failure is returned to the caller.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vouch/testimonials/internal/testimonial"
)

// KeyPrefix is the Redis key prefix for cached corpora.
const KeyPrefix = "corpus:"

// Defaults used when the caller passes zero values.
const (
	DefaultLimit = 200
	DefaultTTL   = 5 * time.Minute
)

// Source loads the authoritative corpus.
type Source interface {
	Recent(ctx context.Context, projectID string, limit int) ([]testimonial.Entry, error)
}

// Logger is the subset of *log.Logger the cache needs.
type Logger interface {
	Printf(format string, args ...any)
}

type entry struct {
	ID      string `msgpack:"id"`
	Content string `msgpack:"c"`
}

// Cache is a read-through cache in front of a Source.
type Cache struct {
	client *redis.Client
	source Source
	limit  int
	ttl    time.Duration
	logger Logger
}

// NewCache creates a cache over source. limit caps the corpus size per
// project; ttl bounds how stale a cached corpus may get.
func NewCache(client *redis.Client, source Source, limit int, ttl time.Duration) *Cache {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, source: source, limit: limit, ttl: ttl, logger: log.Default()}
}

// SetLogger replaces the logger used for fail-open messages.
func (c *Cache) SetLogger(l Logger) {
	if l != nil {
		c.logger = l
	}
}

// Contents returns the project's corpus, excluding the testimonial with
// id excludeID so a submission is never compared against itself.
func (c *Cache) Contents(ctx context.Context, projectID, excludeID string) ([]string, error) {
	entries, err := c.entries(ctx, projectID)
	if err != nil {
		return nil, err
	}
	contents := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.ID != excludeID {
			contents = append(contents, e.Content)
		}
	}
	return contents, nil
}

func (c *Cache) entries(ctx context.Context, projectID string) ([]entry, error) {
	key := KeyPrefix + projectID

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []entry
		if err := msgpack.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		c.logger.Printf("[corpus] undecodable entry key=%s, reloading", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Printf("[corpus] redis GET error key=%s: %v (reading through)", key, err)
	}

	loaded, err := c.source.Recent(ctx, projectID, c.limit)
	if err != nil {
		return nil, fmt.Errorf("corpus: load %s: %w", projectID, err)
	}
	entries := make([]entry, len(loaded))
	for i, e := range loaded {
		entries[i] = entry{ID: e.ID, Content: e.Content}
	}

	if data, err := msgpack.Marshal(entries); err != nil {
		c.logger.Printf("[corpus] encode key=%s: %v", key, err)
	} else if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Printf("[corpus] redis SET error key=%s: %v", key, err)
	}
	return entries, nil
}

// Invalidate drops the cached corpus for a project so the next read sees
// newly moderated testimonials.
func (c *Cache) Invalidate(ctx context.Context, projectID string) error {
	if err := c.client.Del(ctx, KeyPrefix+projectID).Err(); err != nil {
		return fmt.Errorf("corpus: invalidate %s: %w", projectID, err)
	}
	return nil
}
