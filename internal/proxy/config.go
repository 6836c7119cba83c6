package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// Config maps a transport scheme ("http", "https") to the proxy URL used for
// requests of that scheme. An empty Config means a direct connection.
type Config map[string]string

// Direct returns an empty Config.
func Direct() Config {
	return Config{}
}

// NewConfig returns a Config routing both http and https traffic through u.
func NewConfig(u *url.URL) Config {
	s := u.String()
	return Config{"http": s, "https": s}
}

// ConfigFor parses c and returns the Config that routes through it.
func ConfigFor(c Candidate) (Config, error) {
	u, err := c.URL()
	if err != nil {
		return nil, err
	}
	return NewConfig(u), nil
}

// IsDirect reports whether the Config routes nothing through a proxy.
func (c Config) IsDirect() bool {
	return len(c) == 0
}

// ProxyURL returns the proxy URL for the given scheme, or nil when the
// scheme goes direct.
func (c Config) ProxyURL(scheme string) (*url.URL, error) {
	raw, ok := c[scheme]
	if !ok || raw == "" {
		return nil, nil
	}
	u, err := ParseCandidate(raw)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Redacted returns the https proxy URL (or http when https is unset) with
// credentials masked. It returns "" for a direct Config.
func (c Config) Redacted() string {
	for _, scheme := range []string{"https", "http"} {
		u, err := c.ProxyURL(scheme)
		if err == nil && u != nil {
			return u.Redacted()
		}
	}
	return ""
}

// Transport builds an http.Transport that applies the Config.
//
// HTTP(S) proxies are set through Transport.Proxy, per request scheme.
// A SOCKS proxy replaces the dialer, so it applies to every request; when
// the http and https entries name different SOCKS proxies the https one wins.
func (c Config) Transport(dialTimeout time.Duration) (*http.Transport, error) {
	base := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           base.DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   dialTimeout,
		ExpectContinueTimeout: time.Second,
	}
	if c.IsDirect() {
		return transport, nil
	}

	byScheme := make(map[string]*url.URL, len(c))
	for _, scheme := range []string{"http", "https"} {
		u, err := c.ProxyURL(scheme)
		if err != nil {
			return nil, err
		}
		if u == nil {
			continue
		}
		if u.Scheme == "socks5" || u.Scheme == "socks5h" {
			dialer, err := socksDialer(u, base)
			if err != nil {
				return nil, err
			}
			transport.DialContext = dialer
			continue
		}
		byScheme[scheme] = u
	}

	if len(byScheme) > 0 {
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			return byScheme[req.URL.Scheme], nil
		}
	}
	return transport, nil
}

// socksDialer returns a context-aware dial function that connects through
// the SOCKS5 proxy at u.
func socksDialer(u *url.URL, forward *net.Dialer) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	d, err := proxy.FromURL(u, forward)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}, nil
}
