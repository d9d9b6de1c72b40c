package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/eko/gocache/lib/v4/cache"
	go_store "github.com/eko/gocache/store/go_cache/v4"
	gocache "github.com/patrickmn/go-cache"
)

// Cache keys. A key is the procedure name, plus ":" and the input for
// procedures that take one.
const (
	KeySnippets    = "snippet.getAll"
	KeyTags        = "tag.getAll"
	KeyAIProviders = "aiProvider.getAll"
	KeyActiveAIs   = "aiProvider.getActiveAIs"
	KeySettings    = "settings.get"

	snippetPrefix = "snippet.getById:"
)

func SnippetKey(id string) string { return snippetPrefix + id }

// Cache stores procedure results as JSON, so a value read back is always a
// fresh copy that callers may modify freely.
type Cache struct {
	store *cache.Cache[[]byte]

	mu    sync.Mutex
	keys  map[string]struct{}
	stale map[string]struct{}
}

func NewCache() *Cache {
	client := gocache.New(gocache.NoExpiration, gocache.NoExpiration)
	return &Cache{
		store: cache.New[[]byte](go_store.NewGoCache(client)),
		keys:  make(map[string]struct{}),
		stale: make(map[string]struct{}),
	}
}

// raw returns the stored bytes. The in-memory store only fails on a missing
// key, so any error is a miss.
func (c *Cache) raw(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil || data == nil {
		return nil, false
	}
	return data, true
}

func (c *Cache) setRaw(ctx context.Context, key string, data []byte) error {
	if err := c.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("cache: storing %s: %w", key, err)
	}
	c.mu.Lock()
	c.keys[key] = struct{}{}
	c.mu.Unlock()
	return nil
}

func (c *Cache) delete(ctx context.Context, key string) error {
	c.mu.Lock()
	_, present := c.keys[key]
	delete(c.keys, key)
	c.mu.Unlock()
	if !present {
		return nil
	}
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("cache: deleting %s: %w", key, err)
	}
	return nil
}

// Get decodes the cached value of key into out.
func (c *Cache) Get(ctx context.Context, key string, out any) (bool, error) {
	data, ok := c.raw(ctx, key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("cache: decoding %s: %w", key, err)
	}
	return true, nil
}

// Set stores v under key and clears its stale mark.
func (c *Cache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encoding %s: %w", key, err)
	}
	if err := c.setRaw(ctx, key, data); err != nil {
		return err
	}
	c.clearStale(key)
	return nil
}

// MarkStale makes the next Fetch of each key go to the server. The cached
// value stays readable until then.
func (c *Cache) MarkStale(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.stale[k] = struct{}{}
	}
}

func (c *Cache) IsStale(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.stale[key]
	return ok
}

func (c *Cache) clearStale(key string) {
	c.mu.Lock()
	delete(c.stale, key)
	c.mu.Unlock()
}

// KeysWithPrefix lists the cached keys starting with prefix.
func (c *Cache) KeysWithPrefix(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for k := range c.keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}
