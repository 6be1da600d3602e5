package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	// HTTP headers
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"cookies":             true,

	// Postback tokens. They are large, opaque and bound to one session.
	"viewstate":         true,
	"__viewstate":       true,
	"previouspage":      true,
	"__previouspage":    true,
	"eventvalidation":   true,
	"__eventvalidation": true,
	"state":             true,
	"asp.net_sessionid": true,
	"aspnet_sessionid":  true,
	"session_id":        true,
	"sessionid":         true,
}

// sensitivePatterns match values that are masked whatever their key.
var sensitivePatterns = []*regexp.Regexp{
	// Serialized view state (ASP.NET prefixes it with /wE).
	regexp.MustCompile(`^/wE[A-Za-z0-9+/=]{8,}$`),

	// Partial postback delta carrying hidden fields.
	regexp.MustCompile(`\|hiddenField\|__(VIEWSTATE|PREVIOUSPAGE|EVENTVALIDATION)\|`),

	// Raw hidden input markup.
	regexp.MustCompile(`(?i)name="__(VIEWSTATE|PREVIOUSPAGE|EVENTVALIDATION)"`),

	// Session cookie pairs.
	regexp.MustCompile(`(?i)ASP\.NET_SessionId=`),

	// Long base64 blobs.
	regexp.MustCompile(`^[A-Za-z0-9+/]{64,}={0,2}$`),

	// Credentials in headers.
	regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`),
}

// sensitiveKeywords mark a key as sensitive when contained in it.
var sensitiveKeywords = []string{
	"cookie", "viewstate", "previouspage", "eventvalidation",
	"password", "secret", "token", "auth",
}

// MaskValue replaces masked values.
const MaskValue = "***REDACTED***"

// SecureHandler is an slog.Handler that masks cookies and postback tokens
// before passing records to the wrapped handler.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler. A nil handler wraps the default
// logger's handler.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(mask(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = mask(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(masked)}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func mask(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, ga := range group {
			masked[i] = mask(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}
	if a.Value.Kind() == slog.KindString && isSensitiveValue(a.Value.String()) {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

// Options selects the logger output.
type Options struct {
	// Verbose lowers the level from Warn to Debug.
	Verbose bool

	// JSON selects JSON output instead of text.
	JSON bool
}

// Level returns the minimum level for the verbosity.
func Level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// New returns a masking logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	ho := &slog.HandlerOptions{Level: Level(opts.Verbose)}

	var base slog.Handler
	if opts.JSON {
		base = slog.NewJSONHandler(w, ho)
	} else {
		base = slog.NewTextHandler(w, ho)
	}
	return slog.New(NewSecureHandler(base))
}

// NewSecureLogger returns a masking text logger.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return New(w, Options{Verbose: verbose})
}

// NewSecureJSONLogger returns a masking JSON logger.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return New(w, Options{Verbose: verbose, JSON: true})
}
