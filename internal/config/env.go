package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvProxies      = "REPOSCOUT_PROXIES"
	EnvUserAgent    = "REPOSCOUT_USER_AGENT"
	EnvSearchType   = "REPOSCOUT_SEARCH_TYPE"
	EnvBaseURL      = "REPOSCOUT_BASE_URL"
	EnvProbeURL     = "REPOSCOUT_PROBE_URL"
	EnvProbeTimeout = "REPOSCOUT_PROBE_TIMEOUT"
	EnvTimeout      = "REPOSCOUT_TIMEOUT"
	EnvDBDir        = "REPOSCOUT_DB_DIR"
	EnvTorAddress   = "REPOSCOUT_TOR_ADDRESS"
)

// DefaultEnvFile is loaded from the current directory when present.
const DefaultEnvFile = ".env"

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set.
// With no paths it loads DefaultEnvFile. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{DefaultEnvFile}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ReadDotEnv parses a .env file without touching the process environment.
func ReadDotEnv(path string) (map[string]string, error) {
	return godotenv.Read(path)
}

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

// MapLookup adapts a map to a LookupFunc.
func MapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// ApplyEnv copies REPOSCOUT_* variables onto c. A nil lookup reads the
// process environment. Blank and unparsable values are ignored.
// REPOSCOUT_PROXIES is a comma-separated candidate list.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	if v := get(EnvProxies); v != "" {
		var proxies []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				proxies = append(proxies, p)
			}
		}
		c.Proxies = proxies
	}
	setString(&c.UserAgent, get(EnvUserAgent))
	setString(&c.SearchType, get(EnvSearchType))
	setString(&c.BaseURL, get(EnvBaseURL))
	setString(&c.ProbeURL, get(EnvProbeURL))
	setString(&c.DBDir, get(EnvDBDir))
	setString(&c.TorAddress, get(EnvTorAddress))
	if d, ok := parseDuration(get(EnvProbeTimeout)); ok {
		c.ProbeTimeout = d
	}
	if d, ok := parseDuration(get(EnvTimeout)); ok {
		c.Timeout = d
	}
}

// parseDuration accepts Go durations ("5s") and bare seconds ("5").
func parseDuration(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, false
		}
		return time.Duration(n) * time.Second, true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}
