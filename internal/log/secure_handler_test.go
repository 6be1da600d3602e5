package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// TestSecureHandler_MasksSensitiveKeys tests key-based masking.
func TestSecureHandler_MasksSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{name: "cookie", key: "cookie", value: "agegate=ok", wantMask: true},
		{name: "set-cookie mixed case", key: "Set-Cookie", value: "agegate=ok; Path=/", wantMask: true},
		{name: "view state", key: "viewstate", value: "dDwtMTA4MTk", wantMask: true},
		{name: "view state field name", key: "__VIEWSTATE", value: "dDwtMTA4MTk", wantMask: true},
		{name: "previous page", key: "previous_page_token", value: "pp42", wantMask: true},
		{name: "session id", key: "ASP.NET_SessionId", value: "abc123", wantMask: true},
		{name: "url is kept", key: "url", value: "http://www.socom.com/en-us/Leaderboards/SOCOM4", wantMask: false},
		{name: "step is kept", key: "step", value: "submit to agegate", wantMask: false},
		{name: "player is kept", key: "player", value: "player001", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			NewSecureLogger(&buf, true).Info("test message", tt.key, tt.value)
			output := buf.String()

			if tt.wantMask {
				if strings.Contains(output, tt.value) {
					t.Errorf("expected %q to be masked, got: %s", tt.value, output)
				}
				if !strings.Contains(output, MaskValue) {
					t.Errorf("expected mask in output, got: %s", output)
				}
				return
			}
			if !strings.Contains(output, tt.value) {
				t.Errorf("expected %q in output, got: %s", tt.value, output)
			}
		})
	}
}

// TestIsSensitiveValue tests value-based masking.
func TestIsSensitiveValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "serialized view state", value: "/wEPDwUKMTY1NDU2MTA1MmRkYXg=", want: true},
		{name: "delta fragment", value: "8|hiddenField|__VIEWSTATE|AbC/+=9z|", want: true},
		{name: "hidden input markup", value: `<input type="hidden" name="__PREVIOUSPAGE" value="x" />`, want: true},
		{name: "session cookie", value: "ASP.NET_SessionId=q1w2e3; path=/", want: true},
		{name: "long base64", value: strings.Repeat("QUJD", 20), want: true},
		{name: "bearer header", value: "Bearer abc", want: true},
		{name: "progress line", value: "  12: 200 - (leaderboard page)http://www.socom.com/", want: false},
		{name: "short word", value: "ok", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := isSensitiveValue(tt.value); got != tt.want {
				t.Errorf("isSensitiveValue(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

// TestLevels tests that verbosity selects the level.
func TestLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		verbose bool
		level   slog.Level
		shown   bool
	}{
		{name: "debug in verbose", verbose: true, level: slog.LevelDebug, shown: true},
		{name: "debug in quiet", verbose: false, level: slog.LevelDebug, shown: false},
		{name: "info in quiet", verbose: false, level: slog.LevelInfo, shown: false},
		{name: "warn in quiet", verbose: false, level: slog.LevelWarn, shown: true},
		{name: "error in quiet", verbose: false, level: slog.LevelError, shown: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewSecureLogger(&buf, tt.verbose)
			logger.Log(t.Context(), tt.level, "unique_message_42")

			if got := strings.Contains(buf.String(), "unique_message_42"); got != tt.shown {
				t.Errorf("expected shown=%v, got output: %q", tt.shown, buf.String())
			}
		})
	}
}

// TestSecureHandler_WithAttrsAndGroups tests masking through With and groups.
func TestSecureHandler_WithAttrsAndGroups(t *testing.T) {
	t.Parallel()

	t.Run("with attrs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		NewSecureLogger(&buf, true).With("viewstate", "secret-state").Info("postback")
		if strings.Contains(buf.String(), "secret-state") {
			t.Errorf("expected view state to be masked, got: %s", buf.String())
		}
	})

	t.Run("group", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		NewSecureLogger(&buf, true).Info("response",
			slog.Group("request", "url", "http://example.test/", "cookie", "agegate=ok"))
		out := buf.String()
		if !strings.Contains(out, "http://example.test/") {
			t.Errorf("expected url in output, got: %s", out)
		}
		if strings.Contains(out, "agegate=ok") {
			t.Errorf("expected cookie to be masked, got: %s", out)
		}
	})

	t.Run("nil handler", func(t *testing.T) {
		t.Parallel()

		if NewSecureHandler(nil) == nil {
			t.Error("expected non-nil handler")
		}
	})
}

// TestNewSecureJSONLogger tests JSON output.
func TestNewSecureJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewSecureJSONLogger(&buf, false).Warn("player already parsed", "player", "player001", "cookie", "agegate=ok")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["player"] != "player001" {
		t.Errorf("expected player attribute, got %v", entry["player"])
	}
	if entry["cookie"] != MaskValue {
		t.Errorf("expected masked cookie, got %v", entry["cookie"])
	}
}
