// Package proxy picks a working proxy from a list of candidates.
//
// A Selector draws candidates at random and probes each one with a request
// to an echo endpoint routed through it. The first candidate that answers
// with a 2xx status becomes the Config used for the real request. When no
// candidate answers, the Selector returns an empty Config, which means
// "connect directly".
//
// Candidates are "host:port" strings. An explicit scheme (http, https,
// socks5, socks5h) may be given; a bare address is treated as an HTTP proxy.
// SOCKS proxies are dialed with golang.org/x/net/proxy.
package proxy
