package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/newspulse/pkg/domain"
	"github.com/umputun/newspulse/pkg/pipeline"
	"github.com/umputun/newspulse/pkg/pipeline/mocks"
	"github.com/umputun/newspulse/pkg/store"
)

type testConfig struct {
	listen  string
	timeout time.Duration
}

func (c *testConfig) GetServerConfig() (string, time.Duration) { return c.listen, c.timeout }

func testArticles(now time.Time) []domain.Article {
	return []domain.Article{
		{
			Title:       "Tesla stock rises on record deliveries",
			Description: "Tesla reported record quarterly deliveries",
			URL:         "https://example.com/tesla",
			PublishedAt: now.Add(-2 * time.Hour),
			Source:      domain.Source{Name: "Example News"},
			Category:    "business",
		},
		{
			Title:       "Tesla opens new factory",
			Description: "Tesla expands production with a new factory",
			URL:         "https://example.com/factory",
			PublishedAt: now.Add(-10 * 24 * time.Hour),
			Source:      domain.Source{Name: "Example News"},
			Category:    "business",
		},
		{
			Title:       "Local team wins championship",
			Description: "A thrilling final match decided the championship",
			URL:         "https://example.com/sports",
			PublishedAt: now.Add(-1 * time.Hour),
			Source:      domain.Source{Name: "Sports Daily"},
			Category:    "sports",
		},
	}
}

// newTestServer wires a real manager and store behind the server, with the
// fetcher mocked out
func newTestServer(t *testing.T, fetcher *mocks.FetcherMock) (*Server, *httptest.Server) {
	manager := pipeline.NewManager(fetcher, 10*time.Millisecond)
	require.NoError(t, manager.Start(context.Background()))
	t.Cleanup(manager.Stop)

	st := store.NewStore(store.NewMemoryKV(), func(int) int { return 0 })

	srv := New(&testConfig{listen: ":8080", timeout: 30 * time.Second}, manager, st, "test", false)
	ts := httptest.NewServer(srv.router)
	t.Cleanup(ts.Close)
	return srv, ts
}

func staticFetcher(articles []domain.Article) *mocks.FetcherMock {
	return &mocks.FetcherMock{
		HeadlinesFunc: func(ctx context.Context, country, category, query string) ([]domain.Article, error) {
			return articles, nil
		},
	}
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out interface{}) int {
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func sendJSON(t *testing.T, ts *httptest.Server, method, path, body string, out interface{}) int {
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServer_New(t *testing.T) {
	fetcher := staticFetcher(nil)
	manager := pipeline.NewManager(fetcher, 10*time.Millisecond)
	st := store.NewStore(store.NewMemoryKV(), nil)

	srv := New(&testConfig{listen: ":8080", timeout: 30 * time.Second}, manager, st, "1.0.0", false)
	assert.NotNil(t, srv)
	assert.Equal(t, "1.0.0", srv.version)
	assert.False(t, srv.debug)
}

func TestServer_Run(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	fetcher := staticFetcher(testArticles(time.Now()))
	manager := pipeline.NewManager(fetcher, 10*time.Millisecond)
	require.NoError(t, manager.Start(context.Background()))
	defer manager.Stop()

	st := store.NewStore(store.NewMemoryKV(), nil)
	srv := New(&testConfig{listen: fmt.Sprintf("127.0.0.1:%d", port), timeout: 30 * time.Second}, manager, st, "1.0.0", false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = srv.Run(ctx)
	}()

	// wait for server to start
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/ping", port))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	cancel()
	time.Sleep(100 * time.Millisecond)
}

func TestServer_Headlines(t *testing.T) {
	now := time.Now()
	_, ts := newTestServer(t, staticFetcher(testArticles(now)))

	t.Run("default newest first", func(t *testing.T) {
		var resp struct {
			Articles []domain.Article `json:"articles"`
			Count    int              `json:"count"`
		}
		code := getJSON(t, ts, "/api/v1/headlines", &resp)
		assert.Equal(t, http.StatusOK, code)
		require.Equal(t, 3, resp.Count)
		assert.Equal(t, "https://example.com/sports", resp.Articles[0].URL)
		assert.Equal(t, "https://example.com/tesla", resp.Articles[1].URL)
		assert.Equal(t, "https://example.com/factory", resp.Articles[2].URL)
	})

	t.Run("ascending order", func(t *testing.T) {
		var resp struct {
			Articles []domain.Article `json:"articles"`
		}
		code := getJSON(t, ts, "/api/v1/headlines?sort=published&order=asc", &resp)
		assert.Equal(t, http.StatusOK, code)
		require.Len(t, resp.Articles, 3)
		assert.Equal(t, "https://example.com/factory", resp.Articles[0].URL)
	})

	t.Run("week range excludes old articles", func(t *testing.T) {
		var resp struct {
			Articles []domain.Article `json:"articles"`
			Count    int              `json:"count"`
		}
		code := getJSON(t, ts, "/api/v1/headlines?range=week", &resp)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, 2, resp.Count)
		for _, a := range resp.Articles {
			assert.NotEqual(t, "https://example.com/factory", a.URL)
		}
	})

	t.Run("unknown values fall back to defaults", func(t *testing.T) {
		var resp struct {
			Count int `json:"count"`
		}
		code := getJSON(t, ts, "/api/v1/headlines?sort=bogus&order=sideways&range=century", &resp)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, 3, resp.Count)
	})
}

func TestServer_Search(t *testing.T) {
	now := time.Now()
	fetcher := staticFetcher(testArticles(now))
	_, ts := newTestServer(t, fetcher)

	var resp map[string]string
	code := sendJSON(t, ts, http.MethodPost, "/api/v1/search", `{"query":"tesla"}`, &resp)
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "accepted", resp["status"])
	assert.Equal(t, "tesla", resp["query"])

	// refresh happens after the quiet period
	assert.Eventually(t, func() bool {
		for _, call := range fetcher.HeadlinesCalls() {
			if call.Query == "tesla" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	t.Run("invalid body", func(t *testing.T) {
		code := sendJSON(t, ts, http.MethodPost, "/api/v1/search", `not json`, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestServer_Params(t *testing.T) {
	now := time.Now()
	fetcher := staticFetcher(testArticles(now))
	srv, ts := newTestServer(t, fetcher)

	var resp map[string]string
	code := sendJSON(t, ts, http.MethodPut, "/api/v1/params", `{"country":"gb","category":"technology"}`, &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "gb", resp["country"])
	assert.Equal(t, "technology", resp["category"])

	country, category, _ := srv.news.Params()
	assert.Equal(t, "gb", country)
	assert.Equal(t, "technology", category)

	t.Run("omitted field keeps current value", func(t *testing.T) {
		var resp map[string]string
		code := sendJSON(t, ts, http.MethodPut, "/api/v1/params", `{"category":"science"}`, &resp)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "gb", resp["country"])
		assert.Equal(t, "science", resp["category"])
	})

	t.Run("fetch failure reported as bad gateway", func(t *testing.T) {
		failing := &mocks.FetcherMock{
			HeadlinesFunc: func(ctx context.Context, country, category, query string) ([]domain.Article, error) {
				if category == "broken" {
					return nil, fmt.Errorf("remote api: status 500")
				}
				return testArticles(now), nil
			},
		}
		_, ts := newTestServer(t, failing)

		var resp map[string]string
		code := sendJSON(t, ts, http.MethodPut, "/api/v1/params", `{"country":"us","category":"broken"}`, &resp)
		assert.Equal(t, http.StatusBadGateway, code)
		assert.Equal(t, "failed to fetch news, please try again", resp["error"])
	})
}

func TestServer_Trending(t *testing.T) {
	now := time.Now()
	_, ts := newTestServer(t, staticFetcher(testArticles(now)))

	var resp struct {
		Keywords []domain.KeywordCount `json:"keywords"`
	}
	code := getJSON(t, ts, "/api/v1/trending", &resp)
	assert.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, resp.Keywords)
	assert.Equal(t, "tesla", resp.Keywords[0].Keyword)
	assert.Equal(t, 2, resp.Keywords[0].Count)
}

func TestServer_Related(t *testing.T) {
	now := time.Now()
	_, ts := newTestServer(t, staticFetcher(testArticles(now)))

	t.Run("related by shared keywords and category", func(t *testing.T) {
		var resp struct {
			Articles []domain.Article `json:"articles"`
			Count    int              `json:"count"`
		}
		code := getJSON(t, ts, "/api/v1/related?url=https%3A%2F%2Fexample.com%2Ftesla", &resp)
		assert.Equal(t, http.StatusOK, code)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "https://example.com/factory", resp.Articles[0].URL)
	})

	t.Run("missing url", func(t *testing.T) {
		code := getJSON(t, ts, "/api/v1/related", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("bad limit", func(t *testing.T) {
		code := getJSON(t, ts, "/api/v1/related?url=https%3A%2F%2Fexample.com%2Ftesla&limit=zero", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("unknown article", func(t *testing.T) {
		code := getJSON(t, ts, "/api/v1/related?url=https%3A%2F%2Fexample.com%2Fnope", nil)
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestServer_ReadingTime(t *testing.T) {
	now := time.Now()
	longBody := strings.TrimSpace(strings.Repeat("raccoon ", 250)) // 250 words
	articles := []domain.Article{
		{
			Title:       "Long raccoon report", // 3 + 250 words, just over one minute at 200 wpm
			Description: longBody,
			URL:         "https://example.com/long",
			PublishedAt: now,
			Source:      domain.Source{Name: "Example News"},
			Category:    "science",
		},
		{
			Title:       "Short raccoon note",
			Description: "raccoon",
			URL:         "https://example.com/short",
			PublishedAt: now.Add(-time.Hour),
			Source:      domain.Source{Name: "Example News"},
			Category:    "science",
		},
	}
	_, ts := newTestServer(t, staticFetcher(articles))

	type timedArticle struct {
		URL         string `json:"url"`
		ReadingTime int    `json:"reading_time"`
	}

	t.Run("headlines carry reading time", func(t *testing.T) {
		var resp struct {
			Articles []timedArticle `json:"articles"`
		}
		code := getJSON(t, ts, "/api/v1/headlines", &resp)
		assert.Equal(t, http.StatusOK, code)
		require.Len(t, resp.Articles, 2)
		assert.Equal(t, 2, resp.Articles[0].ReadingTime, "253 words at 200 wpm round up to 2 minutes")
		assert.Equal(t, 1, resp.Articles[1].ReadingTime, "short text keeps the 1 minute floor")
	})

	t.Run("related articles carry reading time", func(t *testing.T) {
		var resp struct {
			Articles []timedArticle `json:"articles"`
		}
		code := getJSON(t, ts, "/api/v1/related?url=https%3A%2F%2Fexample.com%2Flong", &resp)
		assert.Equal(t, http.StatusOK, code)
		require.Len(t, resp.Articles, 1)
		assert.Equal(t, "https://example.com/short", resp.Articles[0].URL)
		assert.Equal(t, 1, resp.Articles[0].ReadingTime)
	})
}

func TestServer_Bookmarks(t *testing.T) {
	now := time.Now()
	_, ts := newTestServer(t, staticFetcher(testArticles(now)))

	articleJSON := `{"title":"Tesla stock rises","url":"https://example.com/tesla"}`

	var toggle map[string]bool
	code := sendJSON(t, ts, http.MethodPost, "/api/v1/bookmarks", articleJSON, &toggle)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, toggle["bookmarked"])

	var list struct {
		Articles []domain.Article `json:"articles"`
		Count    int              `json:"count"`
	}
	code = getJSON(t, ts, "/api/v1/bookmarks", &list)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "https://example.com/tesla", list.Articles[0].URL)

	// second toggle removes the bookmark
	code = sendJSON(t, ts, http.MethodPost, "/api/v1/bookmarks", articleJSON, &toggle)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, toggle["bookmarked"])

	code = getJSON(t, ts, "/api/v1/bookmarks", &list)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, list.Count)

	t.Run("missing url rejected", func(t *testing.T) {
		code := sendJSON(t, ts, http.MethodPost, "/api/v1/bookmarks", `{"title":"no url"}`, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestServer_Collections(t *testing.T) {
	now := time.Now()
	_, ts := newTestServer(t, staticFetcher(testArticles(now)))

	var created domain.Collection
	code := sendJSON(t, ts, http.MethodPost, "/api/v1/collections", `{"name":"Tech Reads"}`, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Tech Reads", created.Name)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.CollectionColors[0], created.Color)

	t.Run("empty name rejected", func(t *testing.T) {
		code := sendJSON(t, ts, http.MethodPost, "/api/v1/collections", `{"name":"   "}`, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	articleJSON := `{"title":"Tesla stock rises","url":"https://example.com/tesla"}`

	t.Run("save and list articles", func(t *testing.T) {
		var save map[string]bool
		code := sendJSON(t, ts, http.MethodPost, "/api/v1/collections/"+created.ID+"/articles", articleJSON, &save)
		assert.Equal(t, http.StatusOK, code)
		assert.True(t, save["added"])

		// same article again reports added=false
		code = sendJSON(t, ts, http.MethodPost, "/api/v1/collections/"+created.ID+"/articles", articleJSON, &save)
		assert.Equal(t, http.StatusOK, code)
		assert.False(t, save["added"])

		var list struct {
			Articles []domain.Article `json:"articles"`
			Count    int              `json:"count"`
		}
		code = getJSON(t, ts, "/api/v1/collections/"+created.ID+"/articles", &list)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, 1, list.Count)

		var collections struct {
			Collections []domain.Collection `json:"collections"`
		}
		code = getJSON(t, ts, "/api/v1/collections", &collections)
		assert.Equal(t, http.StatusOK, code)
		require.Len(t, collections.Collections, 4, "three seeded defaults plus the created one")

		for _, c := range collections.Collections {
			if c.ID == created.ID {
				assert.Equal(t, 1, c.ArticleCount)
			}
		}
	})

	t.Run("unknown collection id", func(t *testing.T) {
		code := sendJSON(t, ts, http.MethodPost, "/api/v1/collections/nope/articles", articleJSON, nil)
		assert.Equal(t, http.StatusNotFound, code)

		code = getJSON(t, ts, "/api/v1/collections/nope/articles", nil)
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("delete collection", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/collections/"+created.ID, http.NoBody)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var collections struct {
			Collections []domain.Collection `json:"collections"`
		}
		code := getJSON(t, ts, "/api/v1/collections", &collections)
		assert.Equal(t, http.StatusOK, code)
		require.Len(t, collections.Collections, 3, "seeded defaults survive the delete")
		for _, c := range collections.Collections {
			assert.NotEqual(t, created.ID, c.ID)
		}
	})
}

func TestServer_Share(t *testing.T) {
	now := time.Now()
	_, ts := newTestServer(t, staticFetcher(testArticles(now)))

	t.Run("article from current set", func(t *testing.T) {
		var links map[string]string
		code := getJSON(t, ts, "/api/v1/share?url=https%3A%2F%2Fexample.com%2Ftesla", &links)
		assert.Equal(t, http.StatusOK, code)
		assert.Contains(t, links["twitter"], "twitter.com/intent/tweet")
		assert.Contains(t, links["twitter"], "https%3A%2F%2Fexample.com%2Ftesla")
	})

	t.Run("bookmarked article not in current set", func(t *testing.T) {
		bookmark := `{"title":"Archived story","url":"https://example.com/archived"}`
		code := sendJSON(t, ts, http.MethodPost, "/api/v1/bookmarks", bookmark, nil)
		require.Equal(t, http.StatusOK, code)

		var links map[string]string
		code = getJSON(t, ts, "/api/v1/share?url=https%3A%2F%2Fexample.com%2Farchived", &links)
		assert.Equal(t, http.StatusOK, code)
		assert.Contains(t, links["email"], "Archived") // title carried into the subject
	})

	t.Run("missing url", func(t *testing.T) {
		code := getJSON(t, ts, "/api/v1/share", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("unknown article", func(t *testing.T) {
		code := getJSON(t, ts, "/api/v1/share?url=https%3A%2F%2Fexample.com%2Fmissing", nil)
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestServer_Status(t *testing.T) {
	now := time.Now()
	_, ts := newTestServer(t, staticFetcher(testArticles(now)))

	var status map[string]interface{}
	code := getJSON(t, ts, "/api/v1/status", &status)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "test", status["version"])
	assert.Equal(t, "us", status["country"])
	assert.Equal(t, "general", status["category"])
}
