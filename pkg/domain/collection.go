package domain

// Collection is a user-named, persisted grouping of articles.
// ArticleCount is maintained state: every mutation of the member list
// keeps it equal to the true set size, the UI reads it directly.
type Collection struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	ArticleCount int    `json:"count"`
}

// CollectionColors is the fixed palette for collection color tags
var CollectionColors = []string{"blue", "green", "red", "purple", "orange", "pink"}
