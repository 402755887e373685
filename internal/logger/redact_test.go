package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Strob0t/taskalign/internal/config"
)

type replacer map[string]string

func (r replacer) RedactString(s string) string {
	for secret, mask := range r {
		s = strings.ReplaceAll(s, secret, mask)
	}
	return s
}

func TestRedactingLogger(t *testing.T) {
	for _, async := range []bool{false, true} {
		var buf bytes.Buffer
		red := replacer{"ghp_secret123": "gh****"}
		l, closer := NewWithWriter(config.Logging{Level: "info", Service: "s", Async: async}, &buf, WithRedactor(red))

		l.With("token", "ghp_secret123").Warn("github call failed with ghp_secret123",
			"error", errors.New("401 for https://api.github.com?access_token=ghp_secret123"),
			"repository", "acme/api",
		)
		closer.Close()

		out := buf.String()
		if strings.Contains(out, "ghp_secret123") {
			t.Fatalf("async=%v: secret leaked: %s", async, out)
		}
		if !strings.Contains(out, "gh****") || !strings.Contains(out, "acme/api") {
			t.Fatalf("async=%v: unexpected output: %s", async, out)
		}
	}
}
