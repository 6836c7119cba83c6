package model

import (
	"sort"
	"strings"
)

// LanguageDetails records which language was detected for a repository.
// It holds at most one entry and the flag is always true: the search page
// only shows the primary language, not a breakdown by proportion.
type LanguageDetails map[string]bool

// Extra holds the secondary attributes of a search result.
type Extra struct {
	// Owner is the account that owns the repository.
	// It is always the first path segment of the result URL.
	Owner string `json:"owner"`

	// LanguageDetails is present only when the result card carried a
	// language label. It is omitted from JSON rather than emitted empty.
	LanguageDetails LanguageDetails `json:"language_details,omitempty"`
}

// SearchResult is one normalized entry of a search-result page.
type SearchResult struct {
	// URL is the absolute repository URL, e.g. https://github.com/owner/repo.
	URL string `json:"url"`

	// Extra holds the owner and the optional language.
	Extra Extra `json:"extra"`
}

// NewSearchResult creates a result without language information.
func NewSearchResult(url, owner string) SearchResult {
	return SearchResult{
		URL:   url,
		Extra: Extra{Owner: owner},
	}
}

// SetLanguage records lang as the detected language.
// An empty lang leaves the result unchanged.
func (r *SearchResult) SetLanguage(lang string) {
	if lang == "" {
		return
	}
	r.Extra.LanguageDetails = LanguageDetails{lang: true}
}

// Language returns the detected language, or "" when none was found.
func (r SearchResult) Language() string {
	for lang, detected := range r.Extra.LanguageDetails {
		if detected {
			return lang
		}
	}
	return ""
}

// HasLanguage reports whether a language was detected.
func (r SearchResult) HasLanguage() bool {
	return r.Language() != ""
}

// Repository returns the "owner/name" part of the URL.
// baseURL is the site prefix the URL was built from.
func (r SearchResult) Repository(baseURL string) string {
	path := strings.TrimPrefix(r.URL, strings.TrimSuffix(baseURL, "/"))
	return strings.Trim(path, "/")
}

// LanguageCount pairs a language with the number of results using it.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// CountLanguages tallies the detected languages of results.
// The returned slice is ordered by count (descending) and then by name.
// Results without a language are counted under "" only when
// includeUnknown is true.
func CountLanguages(results []SearchResult, includeUnknown bool) []LanguageCount {
	counts := make(map[string]int)
	for _, r := range results {
		lang := r.Language()
		if lang == "" && !includeUnknown {
			continue
		}
		counts[lang]++
	}

	out := make([]LanguageCount, 0, len(counts))
	for lang, n := range counts {
		out = append(out, LanguageCount{Language: lang, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Language < out[j].Language
	})
	return out
}
