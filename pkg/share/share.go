// Package share builds social share intent URLs for an article.
// Pure string templating, no network calls.
package share

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/umputun/newspulse/pkg/domain"
)

// Links holds per-platform share URLs for one article
type Links struct {
	Twitter  string `json:"twitter"`
	Facebook string `json:"facebook"`
	LinkedIn string `json:"linkedin"`
	WhatsApp string `json:"whatsapp"`
	Email    string `json:"email"`
}

// escape percent-encodes a query component with spaces as %20, the form
// mail clients expect in mailto subjects
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// For builds share links from the article's URL and title
func For(article domain.Article) Links {
	u := escape(article.URL)
	text := escape(article.Title)

	return Links{
		Twitter:  fmt.Sprintf("https://twitter.com/intent/tweet?text=%s&url=%s", text, u),
		Facebook: fmt.Sprintf("https://www.facebook.com/sharer/sharer.php?u=%s", u),
		LinkedIn: fmt.Sprintf("https://www.linkedin.com/sharing/share-offsite/?url=%s", u),
		WhatsApp: fmt.Sprintf("https://wa.me/?text=%s%%20%s", text, u),
		Email:    fmt.Sprintf("mailto:?subject=%s&body=%s%%0A%%0A%s", text, text, u),
	}
}
