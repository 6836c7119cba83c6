package search

import (
	"net/url"
	"strings"

	"github.com/nao1215/reposcout/internal/model"
)

// BuildSearchURL returns "<base>/search?q=<kw1>+<kw2>...&type=<type>".
// Each keyword is query-escaped on its own, so a keyword containing "+"
// or "&" cannot change the query structure.
func BuildSearchURL(base string, q model.Query) string {
	escaped := make([]string, len(q.Keywords))
	for i, kw := range q.Keywords {
		escaped[i] = url.QueryEscape(kw)
	}
	return strings.TrimSuffix(base, "/") + "/search?q=" + strings.Join(escaped, "+") + "&type=" + url.QueryEscape(q.Type)
}
