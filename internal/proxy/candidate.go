package proxy

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Candidate is a proxy address that may or may not be reachable.
type Candidate string

// String implements fmt.Stringer.
func (c Candidate) String() string {
	return string(c)
}

// URL parses the candidate. See ParseCandidate.
func (c Candidate) URL() (*url.URL, error) {
	return ParseCandidate(string(c))
}

// Redacted returns the candidate with any credentials masked, for logging.
func (c Candidate) Redacted() string {
	u, err := c.URL()
	if err != nil {
		return string(c)
	}
	return u.Redacted()
}

// ParseCandidate parses "host:port" or "scheme://[user:pass@]host:port".
// A bare address gets the http scheme. The port must be in 1-65535 and the
// URL must not carry a path, query or fragment.
func ParseCandidate(s string) (*url.URL, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidCandidate)
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCandidate, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("%w: %q has a path or query", ErrInvalidCandidate, s)
	}
	u.Path = ""

	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCandidate, err)
	}
	if host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidCandidate, s)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return nil, fmt.Errorf("%w: bad port %q", ErrInvalidCandidate, port)
	}

	return u, nil
}

// ParseCandidates converts raw strings into candidates, dropping blank
// entries. Entries are not validated here: an invalid entry stays in the
// list and simply fails when probed.
func ParseCandidates(raw []string) []Candidate {
	out := make([]Candidate, 0, len(raw))
	for _, s := range raw {
		for _, field := range strings.Split(s, ",") {
			if field = strings.TrimSpace(field); field != "" {
				out = append(out, Candidate(field))
			}
		}
	}
	return out
}

// ReadCandidates reads one candidate per line from r.
// Blank lines and lines starting with '#' are ignored.
func ReadCandidates(r io.Reader) ([]Candidate, error) {
	var out []Candidate
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, Candidate(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read proxy list: %w", err)
	}
	return out, nil
}
