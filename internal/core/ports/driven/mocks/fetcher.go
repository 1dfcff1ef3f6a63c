package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// MockFetcher is a mock implementation of Fetcher for testing. Pages are
// registered up front; fetching an unregistered URL fails with ErrFetch.
type MockFetcher struct {
	mu    sync.Mutex
	pages map[string]*domain.PageResult

	// failURLs always fail regardless of registration.
	failURLs map[string]bool

	fetchedOrder []string

	// FetchFn overrides all behavior when set.
	FetchFn func(ctx context.Context, url string, cfg domain.FetchConfig) (*domain.PageResult, error)
}

// NewMockFetcher creates a new MockFetcher
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		pages:    make(map[string]*domain.PageResult),
		failURLs: make(map[string]bool),
	}
}

// AddPage registers a page to be served for its URL.
func (m *MockFetcher) AddPage(page *domain.PageResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page.URL] = page
}

// FailURL makes fetches of the URL fail.
func (m *MockFetcher) FailURL(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failURLs[url] = true
}

// FetchedOrder returns the URLs fetched so far, in call order.
func (m *MockFetcher) FetchedOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	order := make([]string, len(m.fetchedOrder))
	copy(order, m.fetchedOrder)
	return order
}

func (m *MockFetcher) Fetch(ctx context.Context, url string, cfg domain.FetchConfig) (*domain.PageResult, error) {
	if m.FetchFn != nil {
		return m.FetchFn(ctx, url, cfg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchedOrder = append(m.fetchedOrder, url)

	if m.failURLs[url] {
		return nil, fmt.Errorf("%w: %s refused", domain.ErrFetch, url)
	}

	page, ok := m.pages[url]
	if !ok {
		return nil, fmt.Errorf("%w: no page at %s", domain.ErrFetch, url)
	}

	// Copy so callers mutating the result don't corrupt the fixture.
	copied := *page
	return &copied, nil
}
