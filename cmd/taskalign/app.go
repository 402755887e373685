package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	tahttp "github.com/Strob0t/taskalign/internal/adapter/http"
	"github.com/Strob0t/taskalign/internal/config"
	"github.com/Strob0t/taskalign/internal/middleware"
	"github.com/Strob0t/taskalign/internal/port/cache"
	"github.com/Strob0t/taskalign/internal/port/codehost"
	"github.com/Strob0t/taskalign/internal/port/tracker"
	"github.com/Strob0t/taskalign/internal/secrets"
	"github.com/Strob0t/taskalign/internal/service"
)

// loadConfig reads the layered config and overlays credentials from the
// secrets vault (env vars, then the optional secrets file).
func loadConfig() (*config.Config, *secrets.Vault, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	loaders := []secrets.Loader{secrets.EnvLoader(config.SecretKeys...)}
	if cfg.SecretsFile != "" {
		loaders = append(loaders, secrets.FileLoader(cfg.SecretsFile))
	}
	vault, err := secrets.NewVault(secrets.Chain(loaders...))
	if err != nil {
		return nil, nil, fmt.Errorf("secrets: %w", err)
	}
	config.ApplySecrets(cfg, vault)
	return cfg, vault, nil
}

// logCredentials records which credentials are set, masked.
func logCredentials(vault *secrets.Vault) {
	attrs := make([]any, 0, 2*len(config.SecretKeys))
	for _, key := range config.SecretKeys {
		if masked := vault.Redacted(key); masked != "" {
			attrs = append(attrs, key, masked)
		}
	}
	slog.Debug("credentials", attrs...)
}

// reloadSecretsOnHUP re-reads the secret sources on SIGHUP so rotated
// credentials are masked in logs. Providers keep the credentials they were
// built with until restart.
func reloadSecretsOnHUP(ctx context.Context, vault *secrets.Vault) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := vault.Reload(); err != nil {
				slog.Error("secret reload failed", "error", err)
				continue
			}
			slog.Info("secrets reloaded", "keys", vault.Keys())
		}
	}
}

// newAlignmentService builds the tracker and code host from the registries.
// A provider that cannot be built is logged and left nil; verification then
// reports the configuration error per request instead of failing startup.
func newAlignmentService(cfg *config.Config, projectCache cache.Cache) *service.AlignmentService {
	var trk tracker.Tracker
	if t, err := tracker.New(cfg.Tracker.Provider, cfg.TrackerSettings()); err != nil {
		slog.Warn("tracker unavailable", "provider", cfg.Tracker.Provider, "error", err)
	} else {
		trk = service.NewCachedTracker(t, projectCache, cfg.Cache.ProjectTTL)
	}

	host, err := codehost.New(cfg.CodeHost.Provider, cfg.CodeHostSettings())
	if err != nil {
		slog.Warn("code host unavailable", "provider", cfg.CodeHost.Provider, "error", err)
		host = nil
	}

	return service.NewAlignmentService(trk, host, service.AlignmentConfig{
		MaxParallel:     cfg.Alignment.MaxParallel,
		DefaultMaxTasks: cfg.Alignment.DefaultMaxTasks,
		DomainHints:     cfg.Alignment.DomainHints,
	})
}

// originPatterns turns the configured CORS origins into WebSocket origin
// host patterns. A wildcard or empty setting allows every origin.
func originPatterns(corsOrigin string) []string {
	var out []string
	for _, o := range tahttp.ParseOrigins(corsOrigin) {
		if o == "*" {
			return nil
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		out = append(out, o)
	}
	return out
}

// requestTimeout applies chi's timeout to every request except the
// long-lived WebSocket stream.
func requestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		timed := chimw.Timeout(d)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == middleware.WebSocketPath {
				next.ServeHTTP(w, r)
				return
			}
			timed.ServeHTTP(w, r)
		})
	}
}
