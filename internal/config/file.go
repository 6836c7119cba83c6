package config

import (
	"time"

	"github.com/nao1215/reposcout/internal/extract"
)

// File is the structure of the .reposcout configuration file.
type File struct {
	Search    SearchSection     `yaml:"search,omitempty"`
	Proxy     ProxySection      `yaml:"proxy,omitempty"`
	Selectors extract.Selectors `yaml:"selectors,omitempty"`
	Database  DatabaseSection   `yaml:"database,omitempty"`
}

// SearchSection configures the search request.
type SearchSection struct {
	Type        string        `yaml:"type,omitempty"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	UserAgent   string        `yaml:"user_agent,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	MaxBodySize int64         `yaml:"max_body_size,omitempty"`
	BatchSize   int           `yaml:"batch_size,omitempty"`
}

// ProxySection configures proxy selection.
type ProxySection struct {
	// Candidates are "host:port" or "scheme://host:port" addresses.
	Candidates         []string      `yaml:"candidates,omitempty"`
	ListFile           string        `yaml:"list_file,omitempty"`
	ProbeURL           string        `yaml:"probe_url,omitempty"`
	ProbeTimeout       time.Duration `yaml:"probe_timeout,omitempty"`
	WithoutReplacement bool          `yaml:"without_replacement,omitempty"`
	Tor                bool          `yaml:"tor,omitempty"`
	TorAddress         string        `yaml:"tor_address,omitempty"`
}

// DatabaseSection configures the search history database.
type DatabaseSection struct {
	Dir string `yaml:"dir,omitempty"`
}

// ApplyFile copies every value set in f onto c. Unset values leave c as is.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}

	s := f.Search
	setString(&c.SearchType, s.Type)
	setString(&c.BaseURL, s.BaseURL)
	setString(&c.UserAgent, s.UserAgent)
	if s.Timeout > 0 {
		c.Timeout = s.Timeout
	}
	if s.MaxBodySize > 0 {
		c.MaxBodySize = s.MaxBodySize
	}
	if s.BatchSize > 0 {
		c.BatchSize = s.BatchSize
	}

	p := f.Proxy
	if len(p.Candidates) > 0 {
		c.Proxies = append([]string(nil), p.Candidates...)
	}
	setString(&c.ProxyListFile, p.ListFile)
	setString(&c.ProbeURL, p.ProbeURL)
	if p.ProbeTimeout > 0 {
		c.ProbeTimeout = p.ProbeTimeout
	}
	if p.WithoutReplacement {
		c.WithoutReplacement = true
	}
	if p.Tor {
		c.UseTor = true
	}
	setString(&c.TorAddress, p.TorAddress)

	if !f.Selectors.IsZero() {
		c.Selectors = f.Selectors.Merge(c.Selectors)
	}

	setString(&c.DBDir, f.Database.Dir)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
