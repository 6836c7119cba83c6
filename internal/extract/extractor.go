package extract

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/reposcout/internal/model"
)

// DefaultBaseURL is prefixed to the relative links found on the page.
const DefaultBaseURL = "https://github.com"

// Extractor maps a search-result page to result records.
// It holds no per-call state and is safe for concurrent use.
type Extractor struct {
	base      string
	baseURL   *url.URL
	selectors Selectors
	logger    *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithBaseURL sets the site prefix for result URLs.
func WithBaseURL(base string) Option {
	return func(e *Extractor) {
		if base != "" {
			e.base = strings.TrimSuffix(base, "/")
		}
	}
}

// WithSelectors overrides the selectors. Empty fields keep their defaults.
func WithSelectors(s Selectors) Option {
	return func(e *Extractor) {
		e.selectors = s.Merge(e.selectors)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates an Extractor with DefaultBaseURL and DefaultSelectors
// unless overridden. It fails when a selector does not compile or the base
// URL is not absolute.
func NewExtractor(opts ...Option) (*Extractor, error) {
	e := &Extractor{
		base:      DefaultBaseURL,
		selectors: DefaultSelectors(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	u, err := url.Parse(e.base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, e.base)
	}
	e.baseURL = u
	if err := e.selectors.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// BaseURL returns the site prefix, without a trailing slash.
func (e *Extractor) BaseURL() string {
	return e.base
}

// Selectors returns the selectors in use.
func (e *Extractor) Selectors() Selectors {
	return e.selectors
}

// Extract parses markup and returns the results in document order.
// It never returns nil.
func (e *Extractor) Extract(markup string) []model.SearchResult {
	return e.ExtractReader(strings.NewReader(markup))
}

// ExtractReader parses the page read from r. A read error yields no results.
func (e *Extractor) ExtractReader(r io.Reader) []model.SearchResult {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		e.logger.Warn("failed to read search page", "error", err)
		return make([]model.SearchResult, 0)
	}
	return e.ExtractDocument(doc)
}

// ExtractDocument walks an already parsed page.
func (e *Extractor) ExtractDocument(doc *goquery.Document) []model.SearchResult {
	results := make([]model.SearchResult, 0)

	doc.Find(e.selectors.Container).Each(func(i int, container *goquery.Selection) {
		result, reason := e.extractOne(container)
		if reason != "" {
			e.logger.Debug("skipping search result", "index", i, "reason", reason)
			return
		}
		results = append(results, result)
	})

	e.logger.Debug("extracted search results", "count", len(results))
	return results
}

// extractOne maps one container. A non-empty reason means the container
// was skipped.
func (e *Extractor) extractOne(container *goquery.Selection) (model.SearchResult, string) {
	title := container.Find(e.selectors.Title).First()
	if title.Length() == 0 {
		return model.SearchResult{}, "no title block"
	}
	link := title.Find(e.selectors.Link).First()
	if link.Length() == 0 {
		return model.SearchResult{}, "no link"
	}
	href, _ := link.Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		return model.SearchResult{}, "empty href"
	}

	resultURL, owner, ok := e.resolve(href)
	if !ok {
		return model.SearchResult{}, "unusable href " + href
	}

	result := model.NewSearchResult(resultURL, owner)
	result.SetLanguage(e.language(container))
	return result, ""
}

// language returns the normalized text of the first language label, or "".
func (e *Extractor) language(container *goquery.Selection) string {
	label := container.Find(e.selectors.LanguageList).First().Find(e.selectors.LanguageLabel).First()
	if label.Length() == 0 {
		return ""
	}
	return norm.NFC.String(strings.TrimSpace(label.Text()))
}

// resolve builds the result URL and owner from a link href.
// Site-relative hrefs are appended to the base. Absolute hrefs are kept
// only when they point under the base. The path must hold an owner and a
// repository segment; the owner is the first one.
func (e *Extractor) resolve(href string) (string, string, bool) {
	u, err := url.Parse(href)
	if err != nil || u.Opaque != "" || u.User != nil {
		return "", "", false
	}

	path := u.EscapedPath()
	switch {
	case u.Scheme != "" || u.Host != "":
		if !strings.EqualFold(u.Scheme, e.baseURL.Scheme) || !strings.EqualFold(u.Host, e.baseURL.Host) {
			return "", "", false
		}
		prefix := strings.TrimSuffix(e.baseURL.EscapedPath(), "/") + "/"
		if !strings.HasPrefix(path, prefix) {
			return "", "", false
		}
		path = path[len(prefix):]
	default:
		path = strings.TrimPrefix(path, "/")
	}

	segments := strings.Split(strings.TrimSuffix(path, "/"), "/")
	if len(segments) < 2 {
		return "", "", false
	}
	for _, seg := range segments {
		name, err := url.PathUnescape(seg)
		if err != nil || name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
			return "", "", false
		}
	}

	resultURL := e.base + "/" + strings.Join(segments, "/")
	if u.RawQuery != "" {
		resultURL += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		resultURL += "#" + u.EscapedFragment()
	}
	return resultURL, segments[0], true
}

// Extract parses markup with the default base URL and selectors.
func Extract(markup string) []model.SearchResult {
	e, err := NewExtractor()
	if err != nil {
		// Defaults always compile.
		panic(err)
	}
	return e.Extract(markup)
}
