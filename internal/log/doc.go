// Package log builds the slog loggers used by boardcrawl.
//
// Every logger is wrapped in a SecureHandler, which masks session cookies
// and the hidden postback tokens (__VIEWSTATE, __PREVIOUSPAGE and
// friends) whether they appear under a telling key or only as a value.
// The tokens are kilobytes of opaque base64 bound to a live session and
// have no place in logs.
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
