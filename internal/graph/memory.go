package graph

import (
	"context"
	"sync"
)

// Query is a recorded write.
type Query struct {
	Cypher string
	Params map[string]any
}

// MemoryClient records writes instead of sending them anywhere. Tests use it
// in place of a live database.
type MemoryClient struct {
	mu     sync.Mutex
	writes []Query
	err    error
	closed bool
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithError makes every subsequent call fail with err.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return Summary{}, m.err
	}
	m.writes = append(m.writes, Query{Cypher: cypher, Params: params})
	return Summary{}, nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *MemoryClient) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Writes returns a copy of the recorded writes.
func (m *MemoryClient) Writes() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Query, len(m.writes))
	copy(out, m.writes)
	return out
}

// Closed reports whether Close was called.
func (m *MemoryClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
