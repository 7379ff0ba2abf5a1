package analyzer

import (
	"sort"

	"github.com/umputun/newspulse/pkg/domain"
)

const (
	// DefaultRelatedLimit is how many related articles are suggested
	DefaultRelatedLimit = 3

	// articleKeywordLimit caps the keywords considered per article
	articleKeywordLimit = 10

	// categoryBonus is added to the score when categories match
	categoryBonus = 2
)

// Related scores every candidate against the source article and returns up
// to limit candidates, most relevant first. The score is the number of
// shared top-10 keywords plus a bonus for a matching category; the source
// itself (by URL) and candidates scoring zero are excluded. Equal scores
// keep the candidate pool's original order.
func Related(source domain.Article, pool []domain.Article, limit int) []domain.Article {
	if source.URL == "" || len(pool) == 0 {
		return []domain.Article{}
	}
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	sourceKeywords := articleKeywords(source)
	sourceSet := make(map[string]struct{}, len(sourceKeywords))
	for _, kw := range sourceKeywords {
		sourceSet[kw] = struct{}{}
	}

	type scored struct {
		article domain.Article
		score   int
	}

	candidates := []scored{}
	for _, candidate := range pool {
		if candidate.URL == source.URL {
			continue
		}

		score := 0
		for _, kw := range articleKeywords(candidate) {
			if _, ok := sourceSet[kw]; ok {
				score++
			}
		}
		if candidate.Category == source.Category {
			score += categoryBonus
		}
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scored{article: candidate, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := make([]domain.Article, len(candidates))
	for i, c := range candidates {
		result[i] = c.article
	}
	return result
}

// articleKeywords extracts the capped keyword set of a single article
func articleKeywords(article domain.Article) []string {
	return Keywords(article.Title+" "+article.Description, articleKeywordLimit)
}
