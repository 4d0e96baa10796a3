package collector

import (
	"context"
	"net/http"
	"sync"
)

// MockFetcher returns a fixed response for development and testing.
type MockFetcher struct {
	StatusCode int
	Body       []byte
	Err        error

	mu       sync.Mutex
	requests []AggregatesRequest
}

// NewMockFetcher creates a MockFetcher answering 200 with body.
func NewMockFetcher(body string) *MockFetcher {
	return &MockFetcher{StatusCode: http.StatusOK, Body: []byte(body)}
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchAggregates(_ context.Context, req AggregatesRequest) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return &Response{StatusCode: m.StatusCode, Body: m.Body}, nil
}

// Requests returns the requests received so far.
func (m *MockFetcher) Requests() []AggregatesRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AggregatesRequest(nil), m.requests...)
}
