package memory

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Common errors
var (
	ErrNotFound   = errors.New("memory not found")
	ErrInvalidKey = errors.New("memory key is required")
)

// Store is the key/value contract behind the memory agent kinds.
type Store interface {
	Save(ctx context.Context, key string, value any, ttl time.Duration) error
	Load(ctx context.Context, key string) (any, error)
	Delete(ctx context.Context, key string) error
	// List returns values whose key matches pattern ("*" wildcards), newest
	// first, at most limit when limit > 0.
	List(ctx context.Context, pattern string, limit int) ([]any, error)
}

// Key joins a namespace and a key the way the memory agents address entries.
func Key(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}

// SplitKey is the inverse of Key. A key without a namespace separator has
// the empty namespace.
func SplitKey(full string) (namespace, key string) {
	if i := strings.IndexByte(full, ':'); i >= 0 {
		return full[:i], full[i+1:]
	}
	return "", full
}

func matchWildcard(pattern, s string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == s
	}

	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	idx := len(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		pos := strings.Index(s[idx:], p)
		if pos < 0 {
			return false
		}
		idx += pos + len(p)
	}
	last := parts[len(parts)-1]
	return last == "" || strings.HasSuffix(s, last)
}
