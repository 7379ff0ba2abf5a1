package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/umputun/newspulse/pkg/analyzer"
	"github.com/umputun/newspulse/pkg/domain"
	"github.com/umputun/newspulse/pkg/share"
	"github.com/umputun/newspulse/pkg/store"
)

// articleView is an article as rendered to the client, with the estimated
// reading time attached
type articleView struct {
	domain.Article
	ReadingTime int `json:"reading_time"`
}

// viewArticles derives the reading time for each article from its title
// and description
func viewArticles(articles []domain.Article) []articleView {
	views := make([]articleView, len(articles))
	for i, a := range articles {
		views[i] = articleView{
			Article:     a,
			ReadingTime: analyzer.ReadingTime(a.Title+" "+a.Description, analyzer.DefaultWordsPerMinute),
		}
	}
	return views
}

// headlinesHandler returns the pipeline view of the current article set.
// Unknown sort, order or range values fall back to the defaults rather
// than failing the request.
func (s *Server) headlinesHandler(w http.ResponseWriter, r *http.Request) {
	state := parseFilterState(r)
	articles := s.news.Articles(state)

	resp := map[string]interface{}{
		"articles": viewArticles(articles),
		"count":    len(articles),
		"loading":  s.news.Loading(),
	}
	if err := s.news.Err(); err != nil {
		resp["error"] = "failed to fetch news, please try again"
	}
	RenderJSON(w, r, http.StatusOK, resp)
}

// searchHandler updates the debounced search query. The response is
// accepted immediately, the refresh happens after the quiet period.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}

	s.news.SetSearch(req.Query)
	RenderJSON(w, r, http.StatusAccepted, map[string]string{"status": "accepted", "query": req.Query})
}

// paramsHandler changes country and category with an immediate refresh
func (s *Server) paramsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Country  string `json:"country"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}

	// omitted fields keep their current values
	country, category, _ := s.news.Params()
	if req.Country != "" {
		country = req.Country
	}
	if req.Category != "" {
		category = req.Category
	}

	if err := s.news.SetParams(r.Context(), country, category); err != nil {
		RenderError(w, r, errors.New("failed to fetch news, please try again"), http.StatusBadGateway)
		return
	}

	RenderJSON(w, r, http.StatusOK, map[string]string{"country": country, "category": category})
}

// trendingHandler returns the most frequent keywords across the current set
func (s *Server) trendingHandler(w http.ResponseWriter, r *http.Request) {
	articles := s.news.Articles(domain.DefaultFilterState())
	RenderJSON(w, r, http.StatusOK, map[string]interface{}{"keywords": analyzer.Trending(articles)})
}

// relatedHandler returns articles related to the one identified by url
func (s *Server) relatedHandler(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		RenderError(w, r, errors.New("url parameter is required"), http.StatusBadRequest)
		return
	}

	limit := analyzer.DefaultRelatedLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			RenderError(w, r, errors.New("limit must be a positive integer"), http.StatusBadRequest)
			return
		}
		limit = n
	}

	source, ok := s.news.Find(url)
	if !ok {
		RenderError(w, r, errors.New("article not found"), http.StatusNotFound)
		return
	}

	pool := s.news.Articles(domain.DefaultFilterState())
	related := analyzer.Related(source, pool, limit)
	RenderJSON(w, r, http.StatusOK, map[string]interface{}{"articles": viewArticles(related), "count": len(related)})
}

// bookmarksHandler returns all bookmarked articles
func (s *Server) bookmarksHandler(w http.ResponseWriter, r *http.Request) {
	articles, err := s.store.Bookmarks(r.Context())
	if err != nil {
		RenderError(w, r, fmt.Errorf("failed to load bookmarks: %w", err), http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, map[string]interface{}{"articles": articles, "count": len(articles)})
}

// toggleBookmarkHandler adds or removes a bookmark for the posted article
func (s *Server) toggleBookmarkHandler(w http.ResponseWriter, r *http.Request) {
	var article domain.Article
	if err := json.NewDecoder(r.Body).Decode(&article); err != nil {
		RenderError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if article.URL == "" {
		RenderError(w, r, errors.New("article url is required"), http.StatusBadRequest)
		return
	}

	bookmarked, err := s.store.ToggleBookmark(r.Context(), article)
	if err != nil {
		RenderError(w, r, fmt.Errorf("failed to toggle bookmark: %w", err), http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, map[string]bool{"bookmarked": bookmarked})
}

// collectionsHandler returns all collections with their article counts
func (s *Server) collectionsHandler(w http.ResponseWriter, r *http.Request) {
	collections, err := s.store.Collections(r.Context())
	if err != nil {
		RenderError(w, r, fmt.Errorf("failed to load collections: %w", err), http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, map[string]interface{}{"collections": collections, "count": len(collections)})
}

// createCollectionHandler creates a named collection
func (s *Server) createCollectionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}

	collection, err := s.store.CreateCollection(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, store.ErrEmptyName) {
			RenderError(w, r, err, http.StatusBadRequest)
			return
		}
		RenderError(w, r, fmt.Errorf("failed to create collection: %w", err), http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusCreated, collection)
}

// deleteCollectionHandler removes a collection and its articles.
// Deleting an unknown collection is a no-op.
func (s *Server) deleteCollectionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteCollection(r.Context(), id); err != nil {
		RenderError(w, r, fmt.Errorf("failed to delete collection: %w", err), http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

// collectionArticlesHandler returns articles saved to a collection
func (s *Server) collectionArticlesHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	articles, err := s.store.CollectionArticles(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrCollectionNotFound) {
			RenderError(w, r, err, http.StatusNotFound)
			return
		}
		RenderError(w, r, fmt.Errorf("failed to load collection articles: %w", err), http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, map[string]interface{}{"articles": articles, "count": len(articles)})
}

// saveToCollectionHandler adds the posted article to a collection.
// Saving an article already present reports added=false and leaves
// the count unchanged.
func (s *Server) saveToCollectionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var article domain.Article
	if err := json.NewDecoder(r.Body).Decode(&article); err != nil {
		RenderError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if article.URL == "" {
		RenderError(w, r, errors.New("article url is required"), http.StatusBadRequest)
		return
	}

	added, err := s.store.SaveToCollection(r.Context(), id, article)
	if err != nil {
		if errors.Is(err, store.ErrCollectionNotFound) {
			RenderError(w, r, err, http.StatusNotFound)
			return
		}
		RenderError(w, r, fmt.Errorf("failed to save article: %w", err), http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, map[string]bool{"added": added})
}

// shareHandler returns share links for an article from the current set
// or the bookmarks
func (s *Server) shareHandler(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		RenderError(w, r, errors.New("url parameter is required"), http.StatusBadRequest)
		return
	}

	article, ok := s.news.Find(url)
	if !ok {
		bookmarks, err := s.store.Bookmarks(r.Context())
		if err != nil {
			RenderError(w, r, fmt.Errorf("failed to load bookmarks: %w", err), http.StatusInternalServerError)
			return
		}
		for _, b := range bookmarks {
			if b.URL == url {
				article, ok = b, true
				break
			}
		}
	}
	if !ok {
		RenderError(w, r, errors.New("article not found"), http.StatusNotFound)
		return
	}

	RenderJSON(w, r, http.StatusOK, share.For(article))
}

// parseFilterState reads sort, order and range query parameters,
// falling back to the defaults for unknown values
func parseFilterState(r *http.Request) domain.FilterState {
	state := domain.DefaultFilterState()

	switch v := domain.SortField(r.URL.Query().Get("sort")); v {
	case domain.SortByPublished, domain.SortByRelevance:
		state.SortBy = v
	}

	switch v := domain.SortOrder(r.URL.Query().Get("order")); v {
	case domain.OrderAsc, domain.OrderDesc:
		state.SortOrder = v
	}

	switch v := domain.DateRange(r.URL.Query().Get("range")); v {
	case domain.RangeAll, domain.RangeDay, domain.RangeWeek, domain.RangeMonth:
		state.DateRange = v
	}

	return state
}
