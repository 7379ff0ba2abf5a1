// Package store persists bookmarks and named collections through a small
// key-value abstraction, so the sqlite backing can be swapped for an
// in-memory one in tests.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/umputun/newspulse/pkg/domain"
)

// storage keys
const (
	bookmarksKey   = "newspulse_bookmarks"
	collectionsKey = "newsCollections"
	collectionPfx  = "collection_"
)

// validation and lookup failures, checked with errors.Is
var (
	ErrEmptyName          = errors.New("collection name is empty")
	ErrCollectionNotFound = errors.New("collection not found")
)

// KV is the persistence collaborator: a synchronous key-value store.
// Get returns an empty string for an absent key.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store keeps the bookmark set and named collections. Every mutation is
// written through to the KV immediately; collection ArticleCount is kept
// equal to the stored member list size.
type Store struct {
	kv        KV
	pickColor func(n int) int // returns an index into domain.CollectionColors
}

// NewStore creates a store on top of the given KV. A nil pickColor gets a
// random palette choice; tests inject a deterministic one.
func NewStore(kv KV, pickColor func(n int) int) *Store {
	if pickColor == nil {
		pickColor = rand.Intn
	}
	return &Store{kv: kv, pickColor: pickColor}
}

// ToggleBookmark flips bookmark membership for the article, keyed by URL,
// and returns the new membership state. It never fails on repeated toggles.
func (s *Store) ToggleBookmark(ctx context.Context, article domain.Article) (bool, error) {
	bookmarks, err := s.loadArticles(ctx, bookmarksKey)
	if err != nil {
		return false, fmt.Errorf("load bookmarks: %w", err)
	}

	kept := bookmarks[:0:0]
	removed := false
	for _, b := range bookmarks {
		if b.URL == article.URL {
			removed = true
			continue
		}
		kept = append(kept, b)
	}
	if !removed {
		kept = append(kept, article)
	}

	if err := s.saveArticles(ctx, bookmarksKey, kept); err != nil {
		return false, fmt.Errorf("save bookmarks: %w", err)
	}
	return !removed, nil
}

// Bookmarks returns all bookmarked articles
func (s *Store) Bookmarks(ctx context.Context) ([]domain.Article, error) {
	bookmarks, err := s.loadArticles(ctx, bookmarksKey)
	if err != nil {
		return nil, fmt.Errorf("load bookmarks: %w", err)
	}
	return bookmarks, nil
}

// IsBookmarked reports whether the URL is in the bookmark set
func (s *Store) IsBookmarked(ctx context.Context, url string) (bool, error) {
	bookmarks, err := s.loadArticles(ctx, bookmarksKey)
	if err != nil {
		return false, fmt.Errorf("load bookmarks: %w", err)
	}
	for _, b := range bookmarks {
		if b.URL == url {
			return true, nil
		}
	}
	return false, nil
}

// CreateCollection creates a new empty collection with a fresh id and a
// color from the fixed palette. Rejects blank names with ErrEmptyName.
func (s *Store) CreateCollection(ctx context.Context, name string) (domain.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Collection{}, ErrEmptyName
	}

	collections, err := s.loadCollections(ctx)
	if err != nil {
		return domain.Collection{}, fmt.Errorf("load collections: %w", err)
	}

	collection := domain.Collection{
		ID:    uuid.NewString(),
		Name:  name,
		Color: domain.CollectionColors[s.pickColor(len(domain.CollectionColors))],
	}
	collections = append(collections, collection)

	if err := s.saveCollections(ctx, collections); err != nil {
		return domain.Collection{}, fmt.Errorf("save collections: %w", err)
	}
	return collection, nil
}

// DeleteCollection removes the collection and its article associations.
// Deleting an unknown id is a no-op.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	collections, err := s.loadCollections(ctx)
	if err != nil {
		return fmt.Errorf("load collections: %w", err)
	}

	kept := collections[:0:0]
	for _, c := range collections {
		if c.ID == id {
			continue
		}
		kept = append(kept, c)
	}

	if err := s.saveCollections(ctx, kept); err != nil {
		return fmt.Errorf("save collections: %w", err)
	}
	if err := s.kv.Delete(ctx, collectionPfx+id); err != nil {
		return fmt.Errorf("delete collection articles: %w", err)
	}
	return nil
}

// SaveToCollection adds the article to the collection. The returned bool is
// false when the article was already a member, an informational outcome, not
// an error; the count is not touched in that case. Unknown collection ids
// fail with ErrCollectionNotFound.
func (s *Store) SaveToCollection(ctx context.Context, collectionID string, article domain.Article) (bool, error) {
	collections, err := s.loadCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("load collections: %w", err)
	}

	idx := -1
	for i, c := range collections {
		if c.ID == collectionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, fmt.Errorf("collection %s: %w", collectionID, ErrCollectionNotFound)
	}

	key := collectionPfx + collectionID
	members, err := s.loadArticles(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load collection articles: %w", err)
	}

	for _, m := range members {
		if m.URL == article.URL {
			return false, nil // already a member, count stays
		}
	}

	members = append(members, article)
	if err := s.saveArticles(ctx, key, members); err != nil {
		return false, fmt.Errorf("save collection articles: %w", err)
	}

	collections[idx].ArticleCount = len(members)
	if err := s.saveCollections(ctx, collections); err != nil {
		return false, fmt.Errorf("save collections: %w", err)
	}
	return true, nil
}

// Collections returns all collections
func (s *Store) Collections(ctx context.Context) ([]domain.Collection, error) {
	collections, err := s.loadCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	return collections, nil
}

// CollectionArticles returns the members of a collection, or
// ErrCollectionNotFound for an unknown id.
func (s *Store) CollectionArticles(ctx context.Context, id string) ([]domain.Article, error) {
	collections, err := s.loadCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}

	found := false
	for _, c := range collections {
		if c.ID == id {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("collection %s: %w", id, ErrCollectionNotFound)
	}

	members, err := s.loadArticles(ctx, collectionPfx+id)
	if err != nil {
		return nil, fmt.Errorf("load collection articles: %w", err)
	}
	return members, nil
}

func (s *Store) loadArticles(ctx context.Context, key string) ([]domain.Article, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return []domain.Article{}, nil
	}
	var articles []domain.Article
	if err := json.Unmarshal([]byte(raw), &articles); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return articles, nil
}

func (s *Store) saveArticles(ctx context.Context, key string, articles []domain.Article) error {
	data, err := json.Marshal(articles)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, string(data))
}

// defaultCollections is the starter set a fresh store is seeded with
func defaultCollections() []domain.Collection {
	return []domain.Collection{
		{ID: "tech", Name: "Technology", Color: "blue"},
		{ID: "business", Name: "Business", Color: "green"},
		{ID: "politics", Name: "Politics", Color: "red"},
	}
}

// loadCollections reads the collection list, seeding and persisting the
// starter set on the very first read. A deliberately emptied list stays
// empty, only an absent key seeds.
func (s *Store) loadCollections(ctx context.Context) ([]domain.Collection, error) {
	raw, err := s.kv.Get(ctx, collectionsKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		seeded := defaultCollections()
		if err := s.saveCollections(ctx, seeded); err != nil {
			return nil, fmt.Errorf("seed collections: %w", err)
		}
		return seeded, nil
	}
	var collections []domain.Collection
	if err := json.Unmarshal([]byte(raw), &collections); err != nil {
		return nil, fmt.Errorf("decode collections: %w", err)
	}
	return collections, nil
}

func (s *Store) saveCollections(ctx context.Context, collections []domain.Collection) error {
	data, err := json.Marshal(collections)
	if err != nil {
		return fmt.Errorf("encode collections: %w", err)
	}
	return s.kv.Set(ctx, collectionsKey, string(data))
}
