package notifier

import (
	"context"
	"errors"
	"testing"
)

type hookNotifier struct{ url string }

func (h *hookNotifier) Name() string                             { return "hook" }
func (h *hookNotifier) Capabilities() Capabilities               { return Capabilities{} }
func (h *hookNotifier) Send(context.Context, Notification) error { return nil }

func TestWebhookFactory(t *testing.T) {
	factory := WebhookFactory(func(u string) *hookNotifier { return &hookNotifier{url: u} })

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://hooks.slack.com/services/T/B/X", false},
		{"http", "http://localhost:9000/hook", false},
		{"missing", "", true},
		{"relative", "/services/T/B/X", true},
		{"wrong scheme", "ftp://example.com/hook", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := factory(map[string]string{"webhook_url": tt.url})
			if tt.wantErr {
				if !errors.Is(err, ErrNotConfigured) {
					t.Fatalf("expected ErrNotConfigured, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := n.(*hookNotifier).url; got != tt.url {
				t.Fatalf("url = %q, want %q", got, tt.url)
			}
		})
	}
}
