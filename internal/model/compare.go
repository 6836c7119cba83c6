package model

// Comparison describes how the results of a query changed between two searches.
type Comparison struct {
	// Added are results present only in the newer search.
	Added []SearchResult `json:"added"`

	// Removed are results present only in the older search.
	Removed []SearchResult `json:"removed"`

	// LanguageChanged are results whose detected language differs.
	// The entry carries the newer language.
	LanguageChanged []SearchResult `json:"language_changed"`

	// Retained counts results present in both searches.
	Retained int `json:"retained"`
}

// HasChanges reports whether anything differs between the two searches.
func (c *Comparison) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0 || len(c.LanguageChanged) > 0
}

// CompareResults compares two result sets by URL.
// Duplicates within one set are counted once. Output follows the order of
// the set each entry was taken from.
func CompareResults(older, newer []SearchResult) *Comparison {
	c := &Comparison{
		Added:           make([]SearchResult, 0),
		Removed:         make([]SearchResult, 0),
		LanguageChanged: make([]SearchResult, 0),
	}

	oldByURL := make(map[string]SearchResult, len(older))
	for _, r := range older {
		if _, ok := oldByURL[r.URL]; !ok {
			oldByURL[r.URL] = r
		}
	}

	seen := make(map[string]bool, len(newer))
	for _, r := range newer {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true

		prev, ok := oldByURL[r.URL]
		if !ok {
			c.Added = append(c.Added, r)
			continue
		}
		c.Retained++
		if prev.Language() != r.Language() {
			c.LanguageChanged = append(c.LanguageChanged, r)
		}
	}

	removed := make(map[string]bool)
	for _, r := range older {
		if seen[r.URL] || removed[r.URL] {
			continue
		}
		removed[r.URL] = true
		c.Removed = append(c.Removed, r)
	}

	return c
}
