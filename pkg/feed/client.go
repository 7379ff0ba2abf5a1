// Package feed implements the headline fetch collaborators: an HTTP client
// for a newsdata.io-style JSON API and an RSS fan-out source. Both map raw
// results into domain articles with HTML stripped out of the text fields.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/umputun/newspulse/pkg/domain"
)

// descriptionFallback replaces an empty description from the API
const descriptionFallback = "No description available for this headline."

// pubDate layouts the API is known to emit
var pubDateLayouts = []string{"2006-01-02 15:04:05", time.RFC3339}

// Client fetches top headlines from the JSON news API
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
	sanitize *bluemonday.Policy
}

// NewClient creates an API client with the given endpoint and key
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		sanitize: bluemonday.StrictPolicy(),
	}
}

// apiArticle is the wire shape of one result from the API
type apiArticle struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Link        string   `json:"link"`
	ImageURL    string   `json:"image_url"`
	PubDate     string   `json:"pubDate"`
	SourceName  string   `json:"source_name"`
	SourceID    string   `json:"source_id"`
	Category    []string `json:"category"`
}

// apiResponse is the top-level API response
type apiResponse struct {
	Results []apiArticle `json:"results"`
}

// Headlines fetches top headlines for the given country, category and
// search query. The search query is applied by the API, not locally.
func (c *Client) Headlines(ctx context.Context, country, category, query string) ([]domain.Article, error) {
	reqURL, err := c.buildURL(country, category, query)
	if err != nil {
		return nil, fmt.Errorf("build request url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch headlines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	articles := make([]domain.Article, 0, len(data.Results))
	for _, raw := range data.Results {
		articles = append(articles, c.toArticle(raw, category))
	}
	return articles, nil
}

// buildURL assembles the API request URL. The category is omitted for
// "general", the API treats the default as general.
func (c *Client) buildURL(country, category, query string) (string, error) {
	u, err := url.Parse(c.endpoint + "/latest")
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("country", country)
	params.Set("apikey", c.apiKey)
	if query != "" {
		params.Set("q", query)
	}
	if category != "" && category != "general" {
		params.Set("category", category)
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// toArticle maps a raw API result to a domain article
func (c *Client) toArticle(raw apiArticle, requestedCategory string) domain.Article {
	description := c.clean(raw.Description)
	if description == "" {
		description = descriptionFallback
	}

	sourceName := raw.SourceName
	if sourceName == "" {
		sourceName = raw.SourceID
	}
	if sourceName == "" {
		sourceName = "Unknown Source"
	}

	category := requestedCategory
	if len(raw.Category) > 0 && raw.Category[0] != "" {
		category = raw.Category[0]
	}
	if category == "" {
		category = "general"
	}

	return domain.Article{
		Title:       c.clean(raw.Title),
		Description: description,
		URL:         raw.Link,
		ImageURL:    raw.ImageURL,
		PublishedAt: parsePubDate(raw.PubDate),
		Source:      domain.Source{Name: sourceName},
		Category:    category,
	}
}

// clean strips HTML markup and unescapes entities
func (c *Client) clean(s string) string {
	return html.UnescapeString(c.sanitize.Sanitize(s))
}

// parsePubDate tries the known layouts, zero time when none match
func parsePubDate(s string) time.Time {
	for _, layout := range pubDateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}
