package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "empty", token: "", want: "****"},
		{name: "short", token: "abcd1234", want: "****"},
		{name: "long", token: "readtoken12345", want: "read...2345"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeToken(tc.token); got != tc.want {
				t.Fatalf("SanitizeToken(%q) = %q, want %q", tc.token, got, tc.want)
			}
		})
	}
}

func TestSanitizeURL(t *testing.T) {
	got := SanitizeURL("https://api.example.com/2.0/files/1/content?access_token=secret")
	if got != "https://api.example.com/2.0/files/1/content?..." {
		t.Fatalf("SanitizeURL() = %q", got)
	}
	if got := SanitizeURL("https://api.example.com/x"); got != "https://api.example.com/x" {
		t.Fatalf("SanitizeURL() without query = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerTo_WritesJSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSkill(WithRequestID(NewLoggerTo(&buf, "info"), "req-1"), "labels", "75")

	logger.Debug("hidden")
	logger.Info("visible", "file_id", "123")

	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "visible" {
		t.Fatalf("msg = %v, want visible", line["msg"])
	}
	if line["request_id"] != "req-1" || line["skill"] != "labels" || line["skill_id"] != "75" {
		t.Fatalf("missing context attributes: %v", line)
	}
}
