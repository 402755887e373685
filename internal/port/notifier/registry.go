package notifier

import (
	"fmt"
	"net/url"

	"github.com/Strob0t/taskalign/internal/port/registry"
)

// Factory builds a Notifier from its settings map.
type Factory = registry.Factory[Notifier]

var notifiers = registry.New[Notifier]("notifier")

// Register is called from an adapter's init().
func Register(name string, factory Factory) { notifiers.Register(name, factory) }

// New builds the named notifier.
func New(name string, config map[string]string) (Notifier, error) {
	return notifiers.New(name, config)
}

// Available lists the registered notifier names.
func Available() []string { return notifiers.Available() }

// WebhookFactory adapts a constructor taking an incoming-webhook URL into
// a Factory. The URL is read from the "webhook_url" setting and must be an
// absolute http(s) URL.
func WebhookFactory[N Notifier](build func(webhookURL string) N) Factory {
	return func(config map[string]string) (Notifier, error) {
		raw := config["webhook_url"]
		if raw == "" {
			return nil, fmt.Errorf("%w: webhook_url is required", ErrNotConfigured)
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return nil, fmt.Errorf("%w: webhook_url must be an http(s) URL", ErrNotConfigured)
		}
		return build(raw), nil
	}
}
