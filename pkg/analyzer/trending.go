package analyzer

import (
	"sort"

	"github.com/umputun/newspulse/pkg/domain"
)

// trendingLimit caps the trending list size
const trendingLimit = 10

// Trending aggregates keywords across an article set into the top-10
// globally trending terms. Each article contributes at most its own top-10
// keywords, so a long article can't dominate through local repetition
// beyond 10 distinct terms. Ties keep first-encountered order.
func Trending(articles []domain.Article) []domain.KeywordCount {
	counts := map[string]int{}
	order := []string{}

	for _, article := range articles {
		for _, kw := range articleKeywords(article) {
			if _, seen := counts[kw]; !seen {
				order = append(order, kw)
			}
			counts[kw]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	if len(order) > trendingLimit {
		order = order[:trendingLimit]
	}

	result := make([]domain.KeywordCount, len(order))
	for i, kw := range order {
		result[i] = domain.KeywordCount{Keyword: kw, Count: counts[kw]}
	}
	return result
}
