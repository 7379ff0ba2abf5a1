package domain

import "time"

// Article represents a single headline as delivered by the news source.
// URL is the identity key: two articles with the same URL are the same
// article regardless of any other field.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Source      Source    `json:"source"`
	Category    string    `json:"category,omitempty"`
}

// Source identifies where an article came from
type Source struct {
	Name string `json:"name"`
}

// KeywordCount is a keyword with its occurrence count, used for trending topics
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}
