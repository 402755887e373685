package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/taskalign/internal/config"
	"github.com/Strob0t/taskalign/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. verifyMW is
// applied to the verify endpoint only (e.g. idempotency).
//
// When /api/v2 is introduced, apply the Deprecation middleware to the v1 group.
func MountRoutes(r chi.Router, h *Handlers, webhookCfg config.Webhook, verifyMW ...func(http.Handler) http.Handler) {
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)

	if h.LiveFeed != nil {
		r.Get(middleware.WebSocketPath, h.LiveFeed.ServeHTTP)
	}

	// Push webhooks (HMAC/token verification instead of the API key)
	if h.Webhooks != nil {
		r.Route("/api/v1/webhooks", func(r chi.Router) {
			r.With(middleware.WebhookHMAC(webhookCfg.GitHubSecret, middleware.HeaderGitHubSignature)).
				Post("/github", h.HandleGitHubWebhook)
			r.With(middleware.WebhookHMAC(webhookCfg.GiteaSecret, middleware.HeaderGiteaSignature)).
				Post("/gitea", h.HandleGiteaWebhook)
			r.With(middleware.WebhookToken(webhookCfg.GitLabToken, middleware.HeaderGitLabToken)).
				Post("/gitlab", h.HandleGitLabWebhook)
		})
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": h.Version})
		})
		r.Get("/providers", h.ListProviders)
		r.With(verifyMW...).Post("/alignment/verify", h.VerifyAlignment)
	})
}
