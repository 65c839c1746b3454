package domain

import (
	"strings"

	"github.com/deluan/sanitize"
)

// sort name articles stripped from the front, longest first
var sortArticles = []string{"the ", "los ", "las ", "les ", "an ", "a "}

// SortName derives the collation key for a display name: accents stripped,
// lowercased, leading articles dropped.
func SortName(name string) string {
	s := strings.ToLower(sanitize.Accents(strings.TrimSpace(name)))
	for _, article := range sortArticles {
		if strings.HasPrefix(s, article) && len(s) > len(article) {
			return s[len(article):]
		}
	}
	return s
}

// SearchQuery normalizes a free-form query for provider search and cache
// keys: path separators and quote characters are stripped.
func SearchQuery(query string) string {
	q := strings.ReplaceAll(query, "/", " ")
	q = strings.ReplaceAll(q, "'", "")
	q = strings.ReplaceAll(q, `"`, "")
	return strings.TrimSpace(q)
}
