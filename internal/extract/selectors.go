package extract

import (
	"fmt"

	"github.com/andybalholm/cascadia"
)

// Default selectors, matching the search page markup.
const (
	DefaultContainerSelector     = "div.Box-sc-g0xbh4-0.gPrlij"
	DefaultTitleSelector         = "div.Box-sc-g0xbh4-0.MHoGG.search-title"
	DefaultLinkSelector          = "a.prc-Link-Link-85e08"
	DefaultLanguageListSelector  = "ul.bZkODq"
	DefaultLanguageLabelSelector = "span"
)

// Selectors locates the parts of one search result.
// Title is matched inside Container, Link inside Title, LanguageList
// inside Container and LanguageLabel inside LanguageList. Only the first
// match of each nested selector is used.
type Selectors struct {
	Container     string `yaml:"container"`
	Title         string `yaml:"title"`
	Link          string `yaml:"link"`
	LanguageList  string `yaml:"language_list"`
	LanguageLabel string `yaml:"language_label"`
}

// DefaultSelectors returns the selectors for the current search page.
func DefaultSelectors() Selectors {
	return Selectors{
		Container:     DefaultContainerSelector,
		Title:         DefaultTitleSelector,
		Link:          DefaultLinkSelector,
		LanguageList:  DefaultLanguageListSelector,
		LanguageLabel: DefaultLanguageLabelSelector,
	}
}

// Merge returns s with every empty field taken from fallback.
func (s Selectors) Merge(fallback Selectors) Selectors {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return Selectors{
		Container:     pick(s.Container, fallback.Container),
		Title:         pick(s.Title, fallback.Title),
		Link:          pick(s.Link, fallback.Link),
		LanguageList:  pick(s.LanguageList, fallback.LanguageList),
		LanguageLabel: pick(s.LanguageLabel, fallback.LanguageLabel),
	}
}

// IsZero reports whether no selector is set.
func (s Selectors) IsZero() bool {
	return s == Selectors{}
}

// Validate checks that every selector is set and compiles.
func (s Selectors) Validate() error {
	fields := []struct {
		name, value string
	}{
		{"container", s.Container},
		{"title", s.Title},
		{"link", s.Link},
		{"language_list", s.LanguageList},
		{"language_label", s.LanguageLabel},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%w: %s selector is empty", ErrInvalidSelector, f.name)
		}
		if _, err := cascadia.Compile(f.value); err != nil {
			return fmt.Errorf("%w: %s selector %q: %w", ErrInvalidSelector, f.name, f.value, err)
		}
	}
	return nil
}
