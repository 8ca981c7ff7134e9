package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type InMemoryStoreConfig struct {
	// MaxEntriesPerNamespace 是单个命名空间的条目上限，0 表示无限。
	// 超出时淘汰该命名空间中最早写入的条目。
	MaxEntriesPerNamespace int

	// Now 用于测试，默认 time.Now。
	Now func() time.Time
}

type memoryEntry struct {
	value     any
	seq       uint64
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// InMemoryStore 按命名空间分桶保存记忆，键 "notes:ada" 落在 notes 桶中。
// 列表按写入顺序倒序返回；命名空间确定的模式只扫描对应的桶。
type InMemoryStore struct {
	mu     sync.RWMutex
	spaces map[string]map[string]memoryEntry
	seq    uint64

	limit  int
	now    func() time.Time
	logger *zap.Logger
}

func NewInMemoryStore(config InMemoryStoreConfig, logger *zap.Logger) *InMemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &InMemoryStore{
		spaces: make(map[string]map[string]memoryEntry),
		limit:  config.MaxEntriesPerNamespace,
		now:    now,
		logger: logger.With(zap.String("component", "memory_store")),
	}
}

func (s *InMemoryStore) Save(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrInvalidKey
	}
	ns, k := SplitKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	bucket := s.spaces[ns]
	if bucket == nil {
		bucket = make(map[string]memoryEntry)
		s.spaces[ns] = bucket
	}
	s.seq++
	e := memoryEntry{value: value, seq: s.seq}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	bucket[k] = e

	for name, ent := range bucket {
		if ent.expired(now) {
			delete(bucket, name)
		}
	}
	if s.limit > 0 && len(bucket) > s.limit {
		s.evictLocked(ns, bucket)
	}
	return nil
}

func (s *InMemoryStore) Load(ctx context.Context, key string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, ErrInvalidKey
	}
	ns, k := SplitKey(key)

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.spaces[ns][k]
	if !ok || e.expired(s.now()) {
		return nil, fmt.Errorf("key %q: %w", key, ErrNotFound)
	}
	return e.value, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrInvalidKey
	}
	ns, k := SplitKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if bucket, ok := s.spaces[ns]; ok {
		delete(bucket, k)
		if len(bucket) == 0 {
			delete(s.spaces, ns)
		}
	}
	return nil
}

func (s *InMemoryStore) List(ctx context.Context, pattern string, limit int) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var hits []memoryEntry
	collect := func(ns string, bucket map[string]memoryEntry, match func(ns, k string) bool) {
		for k, e := range bucket {
			if !e.expired(now) && match(ns, k) {
				hits = append(hits, e)
			}
		}
	}

	ns, rest := SplitKey(pattern)
	switch {
	case pattern == "" || pattern == "*":
		for name, bucket := range s.spaces {
			collect(name, bucket, func(string, string) bool { return true })
		}
	case strings.Contains(pattern, ":") && !strings.Contains(ns, "*"):
		collect(ns, s.spaces[ns], func(_, k string) bool { return matchWildcard(rest, k) })
	default:
		for name, bucket := range s.spaces {
			collect(name, bucket, func(space, k string) bool { return matchWildcard(pattern, Key(space, k)) })
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].seq > hits[j].seq })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]any, len(hits))
	for i, e := range hits {
		out[i] = e.value
	}
	return out, nil
}

// Namespaces 返回仍有未过期条目的命名空间，按名称排序。
func (s *InMemoryStore) Namespaces(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make([]string, 0, len(s.spaces))
	for name, bucket := range s.spaces {
		for _, e := range bucket {
			if !e.expired(now) {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Clear 删除一个命名空间的全部条目；namespace 为 "*" 时清空整个 store。
func (s *InMemoryStore) Clear(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if namespace == "*" {
		s.spaces = make(map[string]map[string]memoryEntry)
		s.logger.Info("memory store cleared")
		return nil
	}
	cleared := len(s.spaces[namespace])
	delete(s.spaces, namespace)
	s.logger.Info("memory namespace cleared", zap.String("namespace", namespace), zap.Int("cleared", cleared))
	return nil
}

func (s *InMemoryStore) evictLocked(ns string, bucket map[string]memoryEntry) {
	keys := make([]string, 0, len(bucket))
	for k := range bucket {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return bucket[keys[i]].seq < bucket[keys[j]].seq })

	evict := len(bucket) - s.limit
	for _, k := range keys[:evict] {
		delete(bucket, k)
	}
	s.logger.Debug("memory entries evicted", zap.String("namespace", ns), zap.Int("evicted", evict))
}

var _ Store = (*InMemoryStore)(nil)
