// Package pipeline composes fetched articles into what the user sees:
// date-range filtering and sorting, a debounced search query, and a
// manager that owns the current article set.
package pipeline

import (
	"sort"
	"time"

	"github.com/umputun/newspulse/pkg/domain"
)

// day thresholds per date range, inclusive
var rangeDays = map[domain.DateRange]float64{
	domain.RangeDay:   1,
	domain.RangeWeek:  7,
	domain.RangeMonth: 30,
}

// Pipeline filters and sorts article sets. Pure: Apply never mutates its
// input and is deterministic for a fixed clock.
type Pipeline struct {
	now func() time.Time
}

// New creates a pipeline on the real clock
func New() *Pipeline {
	return &Pipeline{now: time.Now}
}

// NewWithClock creates a pipeline with an injected clock, for tests
func NewWithClock(now func() time.Time) *Pipeline {
	return &Pipeline{now: now}
}

// Apply filters articles by the date range and sorts them by the selected
// field and direction. The "relevance" sort key is accepted but defined as
// a stable pass-through until a relevance metric for plain sorting exists.
func (p *Pipeline) Apply(articles []domain.Article, state domain.FilterState) []domain.Article {
	result := make([]domain.Article, len(articles))
	copy(result, articles)

	if limit, bounded := rangeDays[state.DateRange]; bounded {
		now := p.now()
		kept := result[:0]
		for _, a := range result {
			if now.Sub(a.PublishedAt).Hours()/24 <= limit {
				kept = append(kept, a)
			}
		}
		result = kept
	}

	if state.SortBy == domain.SortByPublished {
		sort.SliceStable(result, func(i, j int) bool {
			if state.SortOrder == domain.OrderAsc {
				return result[i].PublishedAt.Before(result[j].PublishedAt)
			}
			return result[i].PublishedAt.After(result[j].PublishedAt)
		})
	}

	return result
}
