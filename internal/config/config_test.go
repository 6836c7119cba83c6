package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/reposcout/internal/extract"
)

// TestNewConfig verifies the default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 15 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 15*time.Second {
			t.Errorf("expected Timeout to be 15s, got %v", cfg.Timeout)
		}
	})

	t.Run("default ProbeTimeout is 5 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.ProbeTimeout != 5*time.Second {
			t.Errorf("expected ProbeTimeout to be 5s, got %v", cfg.ProbeTimeout)
		}
	})

	t.Run("default ProbeURL is the IP echo endpoint", func(t *testing.T) {
		t.Parallel()
		if cfg.ProbeURL != "http://httpbin.org/ip" {
			t.Errorf("expected http://httpbin.org/ip, got %q", cfg.ProbeURL)
		}
	})

	t.Run("default SearchType is repositories", func(t *testing.T) {
		t.Parallel()
		if cfg.SearchType != "repositories" {
			t.Errorf("expected repositories, got %q", cfg.SearchType)
		}
	})

	t.Run("default BaseURL is github.com", func(t *testing.T) {
		t.Parallel()
		if cfg.BaseURL != "https://github.com" {
			t.Errorf("expected https://github.com, got %q", cfg.BaseURL)
		}
	})

	t.Run("default BatchSize is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 1 {
			t.Errorf("expected 1, got %d", cfg.BatchSize)
		}
	})

	t.Run("default sampling is with replacement", func(t *testing.T) {
		t.Parallel()
		if cfg.WithoutReplacement {
			t.Error("expected WithoutReplacement to be false")
		}
	})

	t.Run("UserAgent is set", func(t *testing.T) {
		t.Parallel()
		if !strings.HasPrefix(cfg.UserAgent, "Mozilla/5.0") {
			t.Errorf("unexpected UserAgent %q", cfg.UserAgent)
		}
	})
}

// TestConfigValidate tests each validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Keywords = []string{"scraper"}
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("queries file replaces keywords", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Keywords = nil
		cfg.QueriesFile = "queries.txt"
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"no keywords", func(c *Config) { c.Keywords = nil }, ErrNoKeywords},
		{"empty search type", func(c *Config) { c.SearchType = "" }, ErrEmptySearchType},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative probe timeout", func(c *Config) { c.ProbeTimeout = -time.Second }, ErrInvalidProbeTimeout},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"both report formats", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"relative base URL", func(c *Config) { c.BaseURL = "github.com" }, ErrInvalidBaseURL},
		{"ftp base URL", func(c *Config) { c.BaseURL = "ftp://github.com" }, ErrInvalidBaseURL},
		{"bad selector", func(c *Config) { c.Selectors = extract.Selectors{Link: "a[["} }, extract.ErrInvalidSelector},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("ValidateSettings ignores keywords", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		if err := cfg.ValidateSettings(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

// TestLoadConfigFile tests reading the YAML configuration file.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid YAML returns an error", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("search: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("parses every section", func(t *testing.T) {
		t.Parallel()
		content := `
search:
  type: code
  base_url: https://git.example.com
  user_agent: test-agent
  timeout: 30s
  batch_size: 3
proxy:
  candidates:
    - 10.0.0.1:8080
    - socks5://10.0.0.2:1080
  probe_url: http://echo.example/ip
  probe_timeout: 2s
  without_replacement: true
  tor_address: 127.0.0.1:9050
selectors:
  container: article.result
database:
  dir: /tmp/reposcout-db
`
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Search.Type != "code" || f.Search.Timeout != 30*time.Second || f.Search.BatchSize != 3 {
			t.Errorf("unexpected search section: %+v", f.Search)
		}
		if len(f.Proxy.Candidates) != 2 || f.Proxy.ProbeTimeout != 2*time.Second || !f.Proxy.WithoutReplacement {
			t.Errorf("unexpected proxy section: %+v", f.Proxy)
		}
		if f.Proxy.TorAddress != "127.0.0.1:9050" {
			t.Errorf("got tor address %q", f.Proxy.TorAddress)
		}
		if f.Selectors.Container != "article.result" {
			t.Errorf("unexpected selectors: %+v", f.Selectors)
		}
		if f.Database.Dir != "/tmp/reposcout-db" {
			t.Errorf("unexpected database dir %q", f.Database.Dir)
		}
	})
}

// TestApplyFile tests that file values override defaults only when set.
func TestApplyFile(t *testing.T) {
	t.Parallel()

	t.Run("nil file is a no-op", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.ApplyFile(nil)
		if cfg.Timeout != DefaultTimeout {
			t.Errorf("expected default timeout, got %v", cfg.Timeout)
		}
	})

	t.Run("set values override defaults", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.ApplyFile(&File{
			Search:    SearchSection{Type: "code", Timeout: 20 * time.Second},
			Proxy:     ProxySection{Candidates: []string{"10.0.0.1:80"}, WithoutReplacement: true, Tor: true},
			Selectors: extract.Selectors{Container: "article"},
			Database:  DatabaseSection{Dir: "/var/lib/reposcout"},
		})

		if cfg.SearchType != "code" {
			t.Errorf("got %q, expected code", cfg.SearchType)
		}
		if cfg.Timeout != 20*time.Second {
			t.Errorf("got %v, expected 20s", cfg.Timeout)
		}
		if len(cfg.Proxies) != 1 || cfg.Proxies[0] != "10.0.0.1:80" {
			t.Errorf("unexpected proxies %v", cfg.Proxies)
		}
		if !cfg.WithoutReplacement || !cfg.UseTor {
			t.Error("expected proxy flags to be set")
		}
		if cfg.Selectors.Container != "article" {
			t.Errorf("unexpected selectors %+v", cfg.Selectors)
		}
		if cfg.DBDir != "/var/lib/reposcout" {
			t.Errorf("unexpected DBDir %q", cfg.DBDir)
		}
	})

	t.Run("unset values keep defaults", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.ApplyFile(&File{Search: SearchSection{UserAgent: "ua"}})
		if cfg.ProbeTimeout != DefaultProbeTimeout || cfg.BaseURL != DefaultBaseURL {
			t.Errorf("expected defaults to survive, got %v %q", cfg.ProbeTimeout, cfg.BaseURL)
		}
		if cfg.UserAgent != "ua" {
			t.Errorf("got %q, expected ua", cfg.UserAgent)
		}
	})
}

// TestApplyEnv tests environment overrides.
func TestApplyEnv(t *testing.T) {
	t.Parallel()

	t.Run("reads REPOSCOUT variables", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.ApplyEnv(MapLookup(map[string]string{
			EnvProxies:      " 10.0.0.1:80 , ,socks5://10.0.0.2:1080",
			EnvUserAgent:    "env-agent",
			EnvSearchType:   "users",
			EnvProbeTimeout: "3",
			EnvTimeout:      "45s",
			EnvTorAddress:   "127.0.0.1:9150",
		}))

		if cfg.TorAddress != "127.0.0.1:9150" {
			t.Errorf("got tor address %q", cfg.TorAddress)
		}

		if len(cfg.Proxies) != 2 || cfg.Proxies[1] != "socks5://10.0.0.2:1080" {
			t.Errorf("unexpected proxies %v", cfg.Proxies)
		}
		if cfg.UserAgent != "env-agent" || cfg.SearchType != "users" {
			t.Errorf("unexpected values %q %q", cfg.UserAgent, cfg.SearchType)
		}
		if cfg.ProbeTimeout != 3*time.Second {
			t.Errorf("got %v, expected 3s", cfg.ProbeTimeout)
		}
		if cfg.Timeout != 45*time.Second {
			t.Errorf("got %v, expected 45s", cfg.Timeout)
		}
	})

	t.Run("ignores blank and invalid values", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.ApplyEnv(MapLookup(map[string]string{
			EnvUserAgent:    "   ",
			EnvTimeout:      "soon",
			EnvProbeTimeout: "-2",
		}))
		if cfg.UserAgent != DefaultUserAgent || cfg.Timeout != DefaultTimeout || cfg.ProbeTimeout != DefaultProbeTimeout {
			t.Errorf("expected defaults, got %q %v %v", cfg.UserAgent, cfg.Timeout, cfg.ProbeTimeout)
		}
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.ApplyFile(&File{Search: SearchSection{Type: "code"}})
		cfg.ApplyEnv(MapLookup(map[string]string{EnvSearchType: "issues"}))
		if cfg.SearchType != "issues" {
			t.Errorf("got %q, expected issues", cfg.SearchType)
		}
	})
}

// TestReadDotEnv tests .env parsing.
func TestReadDotEnv(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".env")
	content := "# proxies\nREPOSCOUT_PROXIES=10.0.0.1:80,10.0.0.2:80\nREPOSCOUT_USER_AGENT=\"quoted agent\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	env, err := ReadDotEnv(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := NewConfig()
	cfg.ApplyEnv(MapLookup(env))
	if len(cfg.Proxies) != 2 {
		t.Errorf("expected 2 proxies, got %v", cfg.Proxies)
	}
	if cfg.UserAgent != "quoted agent" {
		t.Errorf("got %q, expected quoted agent", cfg.UserAgent)
	}
}

// TestLoadDotEnv tests that a missing .env file is not an error.
func TestLoadDotEnv(t *testing.T) {
	t.Parallel()

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestFindConfigFile tests the explicit-path branch of the lookup.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path that exists", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("got %q, expected %q", got, path)
		}
	})

	t.Run("explicit path that does not exist", func(t *testing.T) {
		t.Parallel()
		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope")); got != "" {
			t.Errorf("expected empty, got %q", got)
		}
	})
}

// TestXDGDirs tests that XDG paths end with the application name.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{"data": XDGDataDir(), "config": XDGConfigDir()} {
		if filepath.Base(dir) != AppName {
			t.Errorf("%s dir %q does not end with %q", name, dir, AppName)
		}
	}
}

// TestConfigCandidates tests merging proxies from flags and a list file.
func TestConfigCandidates(t *testing.T) {
	t.Parallel()

	t.Run("direct proxies only", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Proxies = []string{"10.0.0.1:80", "10.0.0.2:80,10.0.0.3:80"}
		got, err := cfg.Candidates()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("expected 3 candidates, got %v", got)
		}
	})

	t.Run("list file is appended", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "proxies.txt")
		if err := os.WriteFile(path, []byte("# list\n10.0.0.9:3128\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		cfg := NewConfig()
		cfg.Proxies = []string{"10.0.0.1:80"}
		cfg.ProxyListFile = path

		got, err := cfg.Candidates()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[1] != "10.0.0.9:3128" {
			t.Errorf("unexpected candidates %v", got)
		}
	})

	t.Run("missing list file is an error", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.ProxyListFile = filepath.Join(t.TempDir(), "missing.txt")
		if _, err := cfg.Candidates(); err == nil {
			t.Error("expected error")
		}
	})
}
