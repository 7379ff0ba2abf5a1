package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/newspulse/pkg/domain"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher

// Fetcher is the external headline source. The search query is applied by
// the fetcher, the pipeline only filters and sorts what it is given.
type Fetcher interface {
	Headlines(ctx context.Context, country, category, query string) ([]domain.Article, error)
}

// Manager owns the current article set and its query parameters. Every
// parameter change triggers a fetch that replaces the set wholesale, search
// changes are debounced. Each fetch carries a sequence number and a
// completion that is no longer the latest issued is discarded, so a slow
// early response can't overwrite a newer one.
type Manager struct {
	fetcher   Fetcher
	pipeline  *Pipeline
	debouncer *Debouncer

	mu       sync.RWMutex
	baseCtx  context.Context
	articles []domain.Article
	country  string
	category string
	query    string
	seq      uint64
	loading  bool
	lastErr  error
}

// NewManager creates a manager with default parameters (us, general)
func NewManager(fetcher Fetcher, debounce time.Duration) *Manager {
	return NewManagerWithParams(fetcher, debounce, "us", "general")
}

// NewManagerWithParams creates a manager with the given initial country and
// category, so the first fetch already carries the configured values. Empty
// parameters fall back to the defaults.
func NewManagerWithParams(fetcher Fetcher, debounce time.Duration, country, category string) *Manager {
	if country == "" {
		country = "us"
	}
	if category == "" {
		category = "general"
	}
	return &Manager{
		fetcher:   fetcher,
		pipeline:  New(),
		debouncer: NewDebouncer(debounce),
		baseCtx:   context.Background(),
		articles:  []domain.Article{},
		country:   country,
		category:  category,
	}
}

// Start sets the lifecycle context used by debounced refreshes and loads
// the initial article set
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()
	return m.Refresh(ctx)
}

// Stop cancels any pending debounced refresh
func (m *Manager) Stop() {
	m.debouncer.Stop()
}

// Refresh fetches headlines for the current parameters and replaces the
// article set. A failed fetch records a retryable error and leaves the
// previous set in place; a stale completion is dropped silently.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	country, category, query := m.country, m.category, m.query
	m.loading = true
	m.mu.Unlock()

	articles, err := m.fetcher.Headlines(ctx, country, category, query)

	m.mu.Lock()
	defer m.mu.Unlock()

	if seq != m.seq {
		lgr.Printf("[DEBUG] discarding stale response for %s/%s/%q (seq %d, latest %d)",
			country, category, query, seq, m.seq)
		return nil
	}
	m.loading = false

	if err != nil {
		lgr.Printf("[WARN] failed to fetch headlines for %s/%s/%q: %v", country, category, query, err)
		m.lastErr = err
		return err
	}

	m.lastErr = nil
	m.articles = articles
	lgr.Printf("[INFO] loaded %d headlines for %s/%s/%q", len(articles), country, category, query)
	return nil
}

// SetParams changes country and category and refreshes immediately.
// Unchanged parameters are a no-op.
func (m *Manager) SetParams(ctx context.Context, country, category string) error {
	m.mu.Lock()
	if m.country == country && m.category == category {
		m.mu.Unlock()
		return nil
	}
	m.country = country
	m.category = category
	m.mu.Unlock()

	return m.Refresh(ctx)
}

// SetSearch updates the search query after the debounce quiet period.
// Rapid successive calls coalesce to the last value.
func (m *Manager) SetSearch(query string) {
	m.debouncer.Trigger(func() {
		m.mu.Lock()
		if m.query == query {
			m.mu.Unlock()
			return
		}
		m.query = query
		ctx := m.baseCtx
		m.mu.Unlock()

		if err := m.Refresh(ctx); err != nil {
			lgr.Printf("[WARN] debounced search refresh failed: %v", err)
		}
	})
}

// Articles returns the pipeline view of the current set for the given
// filter state
func (m *Manager) Articles(state domain.FilterState) []domain.Article {
	m.mu.RLock()
	current := make([]domain.Article, len(m.articles))
	copy(current, m.articles)
	m.mu.RUnlock()

	return m.pipeline.Apply(current, state)
}

// Find looks up an article in the current set by its URL
func (m *Manager) Find(url string) (domain.Article, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.articles {
		if a.URL == url {
			return a, true
		}
	}
	return domain.Article{}, false
}

// Params returns the current query parameters
func (m *Manager) Params() (country, category, query string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.country, m.category, m.query
}

// Loading reports whether a fetch is in flight
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Err returns the retryable error state of the last completed fetch
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}
