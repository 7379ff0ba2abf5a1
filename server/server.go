package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/newspulse/pkg/domain"
)

// Server represents HTTP server instance
type Server struct {
	config  ConfigProvider
	news    Newsroom
	store   ArticleStore
	version string
	debug   bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Newsroom is the live article set with its query parameters
type Newsroom interface {
	Articles(state domain.FilterState) []domain.Article
	Find(url string) (domain.Article, bool)
	Refresh(ctx context.Context) error
	SetParams(ctx context.Context, country, category string) error
	SetSearch(query string)
	Params() (country, category, query string)
	Loading() bool
	Err() error
}

// ArticleStore keeps bookmarks and named collections
type ArticleStore interface {
	ToggleBookmark(ctx context.Context, article domain.Article) (bool, error)
	Bookmarks(ctx context.Context) ([]domain.Article, error)
	IsBookmarked(ctx context.Context, url string) (bool, error)
	CreateCollection(ctx context.Context, name string) (domain.Collection, error)
	DeleteCollection(ctx context.Context, id string) error
	SaveToCollection(ctx context.Context, collectionID string, article domain.Article) (bool, error)
	Collections(ctx context.Context) ([]domain.Collection, error)
	CollectionArticles(ctx context.Context, id string) ([]domain.Article, error)
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
}

// New initializes a new server instance
func New(cfg ConfigProvider, news Newsroom, store ArticleStore, version string, debug bool) *Server {
	s := &Server{
		config:  cfg,
		news:    news,
		store:   store,
		version: version,
		debug:   debug,
		router:  routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	lgr.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("newspulse", "umputun", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /headlines", s.headlinesHandler)
		r.HandleFunc("POST /search", s.searchHandler)
		r.HandleFunc("PUT /params", s.paramsHandler)
		r.HandleFunc("GET /trending", s.trendingHandler)
		r.HandleFunc("GET /related", s.relatedHandler)

		r.HandleFunc("GET /bookmarks", s.bookmarksHandler)
		r.HandleFunc("POST /bookmarks", s.toggleBookmarkHandler)

		r.HandleFunc("GET /collections", s.collectionsHandler)
		r.HandleFunc("POST /collections", s.createCollectionHandler)
		r.HandleFunc("DELETE /collections/{id}", s.deleteCollectionHandler)
		r.HandleFunc("GET /collections/{id}/articles", s.collectionArticlesHandler)
		r.HandleFunc("POST /collections/{id}/articles", s.saveToCollectionHandler)

		r.HandleFunc("GET /share", s.shareHandler)
		r.HandleFunc("GET /status", s.statusHandler)
	})
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	country, category, query := s.news.Params()
	status := map[string]interface{}{
		"status":   "ok",
		"version":  s.version,
		"time":     time.Now().UTC(),
		"country":  country,
		"category": category,
		"query":    query,
		"loading":  s.news.Loading(),
	}
	if err := s.news.Err(); err != nil {
		status["error"] = "failed to fetch news, please try again"
	}
	RenderJSON(w, r, http.StatusOK, status)
}

// RenderJSON sends JSON response
func RenderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// RenderError sends error response as JSON
func RenderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	RenderJSON(w, r, code, map[string]string{"error": errMsg})
}
