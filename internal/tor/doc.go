// Package tor supplies Tor SOCKS proxies as proxy candidates.
//
// EmbeddedTor starts a private Tor daemon through tornago and exposes its
// SOCKS port as a socks5h candidate, so name resolution also goes through
// Tor. CheckSOCKS verifies that an externally managed daemon answers a
// SOCKS5 handshake before it is handed to the proxy selector.
package tor
