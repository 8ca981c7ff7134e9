// =============================================================================
// 🧠 MockStore - 记忆存储模拟实现
// =============================================================================
// 用于测试的记忆存储，支持错误注入和调用记录
//
// 使用方法:
//
//	store := mocks.NewMockStore().WithLoadError(errors.New("down"))
//	factory := agent.NewFactory(agent.Dependencies{Memory: store})
// =============================================================================
package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/pathflow/agent/memory"
)

// MockStore 是 memory.Store 的模拟实现，不处理过期
type MockStore struct {
	mu sync.RWMutex

	entries map[string]any
	order   []string

	// 错误注入
	saveErr error
	loadErr error
	listErr error

	// 调用记录
	saveCalls int
	loadCalls int
	listCalls int
}

// NewMockStore 创建模拟记忆存储
func NewMockStore() *MockStore {
	return &MockStore{entries: make(map[string]any)}
}

// WithSaveError 设置 Save 错误
func (m *MockStore) WithSaveError(err error) *MockStore {
	m.saveErr = err
	return m
}

// WithLoadError 设置 Load 错误
func (m *MockStore) WithLoadError(err error) *MockStore {
	m.loadErr = err
	return m
}

// WithListError 设置 List 错误
func (m *MockStore) WithListError(err error) *MockStore {
	m.listErr = err
	return m
}

// WithEntry 预置一条记忆
func (m *MockStore) WithEntry(key string, value any) *MockStore {
	m.entries[key] = value
	m.order = append(m.order, key)
	return m
}

func (m *MockStore) Save(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	if key == "" {
		return memory.ErrInvalidKey
	}
	if _, ok := m.entries[key]; !ok {
		m.order = append(m.order, key)
	}
	m.entries[key] = value
	return nil
}

func (m *MockStore) Load(_ context.Context, key string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	v, ok := m.entries[key]
	if !ok {
		return nil, memory.ErrNotFound
	}
	return v, nil
}

func (m *MockStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// List 按前缀匹配（pattern 末尾的 "*"），最新写入的排在前面
func (m *MockStore) List(_ context.Context, pattern string, limit int) ([]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for i := len(m.order) - 1; i >= 0; i-- {
		if strings.HasPrefix(m.order[i], prefix) {
			keys = append(keys, m.order[i])
		}
	}
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = m.entries[k]
	}
	return out, nil
}

// Keys 返回排序后的全部键
func (m *MockStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SaveCalls 返回 Save 调用次数
func (m *MockStore) SaveCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveCalls
}

// LoadCalls 返回 Load 调用次数
func (m *MockStore) LoadCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadCalls
}

// ListCalls 返回 List 调用次数
func (m *MockStore) ListCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCalls
}

var _ memory.Store = (*MockStore)(nil)
