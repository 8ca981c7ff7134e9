// =============================================================================
// 🤖 MockKind - 可编排的 Agent 类型
// =============================================================================
// 注册为一个 Agent 类型后，按 Agent ID 返回预置响应或错误，并记录调用
//
// 使用方法:
//
//	kind := mocks.NewMockKind().
//		WithResponse("search", map[string]any{"response": "rows"}).
//		WithError("analysis", errors.New("boom"))
//	factory.Register("mock", kind.Constructor())
// =============================================================================
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/pathflow/agent"
	"github.com/BaSui01/pathflow/agent/registry"
	"github.com/BaSui01/pathflow/types"
)

// MockKind 是 Agent 类型的模拟实现
type MockKind struct {
	mu sync.RWMutex

	responses map[string]any
	errs      map[string]error
	delay     time.Duration

	calls    []string
	requests map[string][]*agent.Request
}

// NewMockKind 创建模拟 Agent 类型
func NewMockKind() *MockKind {
	return &MockKind{
		responses: make(map[string]any),
		errs:      make(map[string]error),
		requests:  make(map[string][]*agent.Request),
	}
}

// WithResponse 设置某个 Agent 的返回载荷
func (m *MockKind) WithResponse(agentID string, payload any) *MockKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[agentID] = payload
	return m
}

// WithError 设置某个 Agent 的返回错误
func (m *MockKind) WithError(agentID string, err error) *MockKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[agentID] = err
	return m
}

// WithDelay 设置每次调用前的等待时间
func (m *MockKind) WithDelay(d time.Duration) *MockKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// Constructor 返回用于 agent.Factory 注册的构造函数
func (m *MockKind) Constructor() agent.Constructor {
	return func(def *registry.Definition, _ agent.Dependencies) (agent.Agent, error) {
		return &mockAgent{def: def, kind: m}, nil
	}
}

// Calls 返回按调用顺序排列的 Agent ID
func (m *MockKind) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.calls...)
}

// CallCount 返回某个 Agent 的调用次数
func (m *MockKind) CallCount(agentID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests[agentID])
}

// Requests 返回某个 Agent 收到的请求
func (m *MockKind) Requests(agentID string) []*agent.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*agent.Request(nil), m.requests[agentID]...)
}

// Reset 清空调用记录
func (m *MockKind) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.requests = make(map[string][]*agent.Request)
}

func (m *MockKind) execute(ctx context.Context, id string, req *agent.Request) (*types.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, id)
	m.requests[id] = append(m.requests[id], req)
	delay := m.delay
	payload, hasPayload := m.responses[id]
	err := m.errs[id]
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return nil, err
	}
	if !hasPayload {
		payload = map[string]any{"response": id + ":" + req.Input}
	}
	return types.NewResult(payload), nil
}

type mockAgent struct {
	def  *registry.Definition
	kind *MockKind
}

func (a *mockAgent) ID() string                       { return a.def.ID() }
func (a *mockAgent) Kind() types.AgentKind            { return a.def.Kind() }
func (a *mockAgent) Capabilities() []types.Capability { return a.def.Capabilities() }

func (a *mockAgent) Execute(ctx context.Context, req *agent.Request) (*types.Result, error) {
	return a.kind.execute(ctx, a.def.ID(), req)
}

var _ agent.Agent = (*mockAgent)(nil)
