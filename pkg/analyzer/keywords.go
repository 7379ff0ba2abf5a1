// Package analyzer implements the text analysis behind related-article
// suggestions and trending topics: keyword extraction, reading time
// estimation, relatedness scoring and keyword aggregation. All functions
// are pure and total - malformed or empty input degrades to an empty or
// minimum result, never an error.
package analyzer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultWordsPerMinute is the reading speed used when none is given
const DefaultWordsPerMinute = 200

// stopWords are common words excluded from keyword extraction
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "from": {}, "as": {},
	"is": {}, "was": {}, "are": {}, "were": {}, "been": {}, "be": {}, "have": {}, "has": {},
	"had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "must": {}, "can": {}, "this": {}, "that": {},
	"these": {}, "those": {},
}

// nonWord matches everything that is neither a word character nor whitespace
var nonWord = regexp.MustCompile(`[^\w\s]`)

// Keywords extracts up to limit keywords from free text, most frequent
// first. A keyword is a lower-cased token longer than 3 characters that is
// not a stop word; no stemming, exact match only. Equal counts keep the
// order tokens were first encountered in.
func Keywords(text string, limit int) []string {
	if text == "" || limit <= 0 {
		return []string{}
	}

	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), "")

	counts := map[string]int{}
	order := []string{} // first-seen order, the tie-break for equal counts
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, seen := counts[word]; !seen {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

// ReadingTime estimates reading time in whole minutes, never below 1.
// A non-positive wordsPerMinute falls back to DefaultWordsPerMinute.
func ReadingTime(text string, wordsPerMinute int) int {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	words := len(strings.Fields(text))
	if words == 0 {
		return 1
	}
	minutes := int(math.Ceil(float64(words) / float64(wordsPerMinute)))
	if minutes < 1 {
		return 1
	}
	return minutes
}
