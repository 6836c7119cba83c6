// Package log builds slog loggers that redact credentials.
//
// Proxy lists often carry credentials in the URL userinfo, and API tokens
// may appear in headers. SecureHandler masks both before a record is
// written, in any handler format:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("selected proxy", "proxy", "http://bob:pw@10.0.0.1:3128")
//	// proxy=http://***REDACTED***@10.0.0.1:3128
package log
