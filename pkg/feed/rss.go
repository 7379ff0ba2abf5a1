package feed

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/newspulse/pkg/domain"
)

// RSSFetcher aggregates headlines from curated per-category RSS feeds.
// Unlike the JSON API there is no server-side search, so the query is
// applied here - the fetch collaborator owns search in either case.
type RSSFetcher struct {
	feeds      map[string][]string // category -> feed URLs
	timeout    time.Duration
	maxWorkers int
	sanitize   *bluemonday.Policy
}

// NewRSSFetcher creates an RSS source over the given category feed map
func NewRSSFetcher(feeds map[string][]string, timeout time.Duration, maxWorkers int) *RSSFetcher {
	if maxWorkers <= 0 {
		maxWorkers = 5
	}
	return &RSSFetcher{
		feeds:      feeds,
		timeout:    timeout,
		maxWorkers: maxWorkers,
		sanitize:   bluemonday.StrictPolicy(),
	}
}

// Headlines fetches all feeds for the category concurrently and returns
// their entries newest first, filtered by the search query. Individual feed
// failures are logged and skipped; it fails only when every feed failed.
func (f *RSSFetcher) Headlines(ctx context.Context, _, category, query string) ([]domain.Article, error) {
	if category == "" {
		category = "general"
	}
	urls := f.feeds[category]
	if len(urls) == 0 {
		urls = f.feeds["general"]
	}
	if len(urls) == 0 {
		return []domain.Article{}, nil
	}

	var mu sync.Mutex
	var articles []domain.Article
	failures := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxWorkers)

	for _, feedURL := range urls {
		g.Go(func() error {
			items, err := f.fetchOne(gctx, feedURL, category)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lgr.Printf("[WARN] failed to fetch feed %s: %v", feedURL, err)
				failures++
				return nil
			}
			articles = append(articles, items...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch feeds: %w", err)
	}
	if failures == len(urls) {
		return nil, fmt.Errorf("all %d feeds failed for category %s", failures, category)
	}

	articles = f.filterByQuery(articles, query)
	sort.SliceStable(articles, func(i, j int) bool { return articles[i].PublishedAt.After(articles[j].PublishedAt) })
	return articles, nil
}

// fetchOne retrieves and maps a single feed
func (f *RSSFetcher) fetchOne(ctx context.Context, feedURL, category string) ([]domain.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parsed, err := gofeed.NewParser().ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	articles := make([]domain.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		article := domain.Article{
			Title:       f.clean(item.Title),
			Description: f.clean(item.Description),
			URL:         item.Link,
			Source:      domain.Source{Name: parsed.Title},
			Category:    category,
		}
		if item.Image != nil {
			article.ImageURL = item.Image.URL
		}
		if item.PublishedParsed != nil {
			article.PublishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			article.PublishedAt = *item.UpdatedParsed
		}
		articles = append(articles, article)
	}
	return articles, nil
}

// filterByQuery keeps articles whose title or description contains the
// query, case-insensitive. Empty query keeps everything.
func (f *RSSFetcher) filterByQuery(articles []domain.Article, query string) []domain.Article {
	if query == "" {
		return articles
	}
	query = strings.ToLower(query)

	matched := articles[:0:0]
	for _, a := range articles {
		if strings.Contains(strings.ToLower(a.Title), query) ||
			strings.Contains(strings.ToLower(a.Description), query) {
			matched = append(matched, a)
		}
	}
	return matched
}

// clean strips HTML markup and unescapes entities
func (f *RSSFetcher) clean(s string) string {
	return html.UnescapeString(f.sanitize.Sanitize(s))
}
