package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/newspulse/pkg/config"
	"github.com/umputun/newspulse/pkg/feed"
	"github.com/umputun/newspulse/pkg/store"
)

func TestMakeFetcher(t *testing.T) {
	t.Run("api source", func(t *testing.T) {
		fetcher, err := makeFetcher(config.NewsConfig{
			Source:   "api",
			Endpoint: "https://newsdata.io/api/1",
			APIKey:   "test-key",
			Timeout:  10 * time.Second,
		})
		require.NoError(t, err)
		assert.IsType(t, &feed.Client{}, fetcher)
	})

	t.Run("rss source", func(t *testing.T) {
		fetcher, err := makeFetcher(config.NewsConfig{
			Source:  "rss",
			Feeds:   map[string][]string{"general": {"https://example.com/rss.xml"}},
			Timeout: 10 * time.Second,
			Workers: 5,
		})
		require.NoError(t, err)
		assert.IsType(t, &feed.RSSFetcher{}, fetcher)
	})

	t.Run("unknown source", func(t *testing.T) {
		_, err := makeFetcher(config.NewsConfig{Source: "telegraph"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown news source")
	})
}

func TestOpenKV(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Database.DSN = "memory"

		kv, err := openKV(context.Background(), cfg)
		require.NoError(t, err)
		assert.IsType(t, &store.MemoryKV{}, kv)
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Database.DSN = "file:" + filepath.Join(t.TempDir(), "test.db")
		cfg.Database.MaxOpenConns = 2
		cfg.Database.MaxIdleConns = 1
		cfg.Database.ConnMaxLifetime = 60

		kv, err := openKV(context.Background(), cfg)
		require.NoError(t, err)
		require.IsType(t, &store.SQLiteKV{}, kv)

		closer, ok := kv.(io.Closer)
		require.True(t, ok)
		assert.NoError(t, closer.Close())
	})
}

func TestRun_ServerStartStop(t *testing.T) {
	// fake news API upstream, recording the query of the initial fetch
	var mu sync.Mutex
	var gotQuery url.Values
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotQuery = r.URL.Query()
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"success","totalResults":0,"results":[]}`)
	}))
	defer upstream.Close()

	// find free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	configContent := fmt.Sprintf(`
server:
  listen: "127.0.0.1:%d"

database:
  dsn: memory

news:
  endpoint: %s
  api_key: test-key
  country: fr
  category: science
`, port, upstream.URL)
	configPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	cfg, err := config.Load(configPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- run(ctx, cfg, false)
	}()

	// wait for server to start
	time.Sleep(200 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/ping", port))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	// the initial fetch must carry the configured country and category
	mu.Lock()
	require.NotNil(t, gotQuery, "upstream was called on startup")
	assert.Equal(t, "fr", gotQuery.Get("country"))
	assert.Equal(t, "science", gotQuery.Get("category"))
	mu.Unlock()

	// shutdown
	cancel()

	select {
	case err := <-serverErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Error("server shutdown timeout")
	}
}

func TestSetupLog(t *testing.T) {
	t.Run("debug mode enabled", func(t *testing.T) {
		setupLog(true)
	})

	t.Run("debug mode disabled", func(t *testing.T) {
		setupLog(false)
	})

	t.Run("with secrets", func(t *testing.T) {
		setupLog(true, "secret1", "secret2")
	})
}
