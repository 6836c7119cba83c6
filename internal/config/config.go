package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/reposcout/internal/extract"
	"github.com/nao1215/reposcout/internal/model"
	"github.com/nao1215/reposcout/internal/proxy"
)

// Default configuration values.
const (
	// AppName is used for XDG directory paths.
	AppName = "reposcout"

	// DefaultTimeout bounds the fetch of one search page.
	DefaultTimeout = 15 * time.Second

	// DefaultProbeTimeout bounds one proxy probe.
	DefaultProbeTimeout = proxy.DefaultProbeTimeout

	// DefaultProbeURL is the echo endpoint used to probe proxies.
	DefaultProbeURL = proxy.DefaultProbeURL

	// DefaultBaseURL is the site searched.
	DefaultBaseURL = extract.DefaultBaseURL

	// DefaultSearchType is the result category.
	DefaultSearchType = model.DefaultSearchType

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "Mozilla/5.0 (compatible; reposcout/1.0; +https://github.com/nao1215/reposcout)"

	// DefaultBatchSize is the number of queries searched concurrently.
	// Each search is sequential on its own.
	DefaultBatchSize = 1

	// DefaultMaxBodySize caps how much of a search page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorStartupTimeout is how long to wait for the embedded Tor daemon.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultListenAddress is where the serve command listens.
	DefaultListenAddress = "127.0.0.1:8080"
)

// Config holds every option of a reposcout run. It is filled from defaults,
// the configuration file, the environment and flags, in that order.
type Config struct {
	// Keywords are the search terms of a single search.
	Keywords []string

	// QueriesFile lists one query per line for a batch run.
	QueriesFile string

	// SearchType is the result category, e.g. "repositories" or "code".
	SearchType string

	// BaseURL is the site searched. Result URLs are built on it.
	BaseURL string

	// UserAgent is sent with the search request and with probes.
	UserAgent string

	// Timeout bounds the fetch of one search page.
	Timeout time.Duration

	// MaxBodySize caps how many bytes of a search page are read.
	MaxBodySize int64

	// Proxies are proxy candidates given directly.
	Proxies []string

	// ProxyListFile names a file with one candidate per line.
	ProxyListFile string

	// ProbeURL is the echo endpoint probed through each candidate.
	ProbeURL string

	// ProbeTimeout bounds one probe.
	ProbeTimeout time.Duration

	// WithoutReplacement probes each candidate at most once per search.
	WithoutReplacement bool

	// UseTor starts an embedded Tor daemon and adds it as a candidate.
	UseTor bool

	// TorStartupTimeout is how long to wait for Tor to bootstrap.
	TorStartupTimeout time.Duration

	// TorAddress is the SOCKS address of an already running Tor daemon.
	// It is added as a candidate once it answers a SOCKS5 handshake.
	TorAddress string

	// Selectors override the result page selectors. Empty fields keep
	// their defaults.
	Selectors extract.Selectors

	// BatchSize is the number of queries searched concurrently.
	BatchSize int

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the configuration file. When empty, .reposcout is
	// looked up in the current directory and then the home directory.
	ConfigFilePath string

	// JSONReport selects JSON output.
	JSONReport bool

	// MarkdownReport selects Markdown output.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// DBDir is where the search history database lives.
	DBDir string

	// SaveToDB stores each report in the history database.
	SaveToDB bool

	// ListenAddress is the address the serve command binds.
	ListenAddress string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		SearchType:        DefaultSearchType,
		BaseURL:           DefaultBaseURL,
		UserAgent:         DefaultUserAgent,
		Timeout:           DefaultTimeout,
		MaxBodySize:       DefaultMaxBodySize,
		ProbeURL:          DefaultProbeURL,
		ProbeTimeout:      DefaultProbeTimeout,
		TorStartupTimeout: DefaultTorStartupTimeout,
		BatchSize:         DefaultBatchSize,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
		ListenAddress:     DefaultListenAddress,
	}
}

// XDGDataDir returns the data directory, e.g. ~/.local/share/reposcout.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory, e.g. ~/.config/reposcout.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the options needed to run a search.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Keywords) == 0 && c.QueriesFile == "" {
		return ErrNoKeywords
	}
	return c.ValidateSettings()
}

// ValidateSettings checks everything except the keywords. It is used by
// commands that receive their queries elsewhere, such as serve.
func (c *Config) ValidateSettings() error {
	if c.SearchType == "" {
		return ErrEmptySearchType
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ProbeTimeout <= 0 {
		return ErrInvalidProbeTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidBaseURL
	}
	if !c.Selectors.IsZero() {
		if err := c.Selectors.Merge(extract.DefaultSelectors()).Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Candidates returns the proxy candidates from Proxies followed by those
// read from ProxyListFile.
func (c *Config) Candidates() ([]proxy.Candidate, error) {
	candidates := proxy.ParseCandidates(c.Proxies)
	if c.ProxyListFile == "" {
		return candidates, nil
	}

	f, err := os.Open(c.ProxyListFile) //nolint:gosec // user-provided proxy list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open proxy list: %w", err)
	}
	defer f.Close()

	fromFile, err := proxy.ReadCandidates(f)
	if err != nil {
		return nil, err
	}
	return append(candidates, fromFile...), nil
}
