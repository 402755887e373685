package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/Strob0t/taskalign/internal/domain/alignment"
	"github.com/Strob0t/taskalign/internal/port/codehost"
	"github.com/Strob0t/taskalign/internal/port/tracker"
	"github.com/Strob0t/taskalign/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Alignment *service.AlignmentService
	Webhooks  *service.WebhookService
	Version   string
	// LiveFeed serves the WebSocket event stream when set.
	LiveFeed http.Handler
	// Checks are extra readiness probes keyed by component name.
	Checks map[string]func() bool
}

// VerifyAlignment handles POST /api/v1/alignment/verify
func (h *Handlers) VerifyAlignment(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[alignment.Request](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	report, err := h.Alignment.Verify(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "verification failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type providersResponse struct {
	Tracker            string   `json:"tracker"`
	CodeHost           string   `json:"code_host"`
	AvailableTrackers  []string `json:"available_trackers"`
	AvailableCodeHosts []string `json:"available_code_hosts"`
}

// ListProviders handles GET /api/v1/providers
func (h *Handlers) ListProviders(w http.ResponseWriter, _ *http.Request) {
	tn, hn := h.Alignment.Providers()
	writeJSON(w, http.StatusOK, providersResponse{
		Tracker:            tn,
		CodeHost:           hn,
		AvailableTrackers:  tracker.Available(),
		AvailableCodeHosts: codehost.Available(),
	})
}

type healthResponse struct {
	Status  string          `json:"status"`
	Version string          `json:"version,omitempty"`
	Checks  map[string]bool `json:"checks,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: h.Version})
}

// Ready handles GET /health/ready. It reports 503 while credentials are
// missing or a readiness probe fails.
func (h *Handlers) Ready(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ready", Version: h.Version, Checks: map[string]bool{}}
	status := http.StatusOK

	err := h.Alignment.CheckConfigured()
	resp.Checks["providers"] = err == nil
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusServiceUnavailable
	}
	for name, check := range h.Checks {
		up := check()
		resp.Checks[name] = up
		if !up {
			status = http.StatusServiceUnavailable
		}
	}
	if status != http.StatusOK {
		resp.Status = "not_ready"
	}
	writeJSON(w, status, resp)
}

type webhookResponse struct {
	Status     string `json:"status"`
	Event      string `json:"event,omitempty"`
	Repository string `json:"repository,omitempty"`
	Project    string `json:"project,omitempty"`
}

// HandleGitHubWebhook handles POST /api/v1/webhooks/github
func (h *Handlers) HandleGitHubWebhook(w http.ResponseWriter, r *http.Request) {
	eventType := r.Header.Get("X-GitHub-Event")
	switch eventType {
	case "ping":
		writeJSON(w, http.StatusOK, webhookResponse{Status: "pong"})
	case "push":
		h.handlePush(w, r, service.ParseGitHubPush)
	default:
		writeJSON(w, http.StatusOK, webhookResponse{Status: "ignored", Event: eventType})
	}
}

// HandleGiteaWebhook handles POST /api/v1/webhooks/gitea. Gitea push
// payloads follow the GitHub shape.
func (h *Handlers) HandleGiteaWebhook(w http.ResponseWriter, r *http.Request) {
	eventType := r.Header.Get("X-Gitea-Event")
	if eventType != "push" {
		writeJSON(w, http.StatusOK, webhookResponse{Status: "ignored", Event: eventType})
		return
	}
	h.handlePush(w, r, service.ParseGitHubPush)
}

// HandleGitLabWebhook handles POST /api/v1/webhooks/gitlab
func (h *Handlers) HandleGitLabWebhook(w http.ResponseWriter, r *http.Request) {
	eventType := r.Header.Get("X-Gitlab-Event")
	if eventType != "Push Hook" {
		writeJSON(w, http.StatusOK, webhookResponse{Status: "ignored", Event: eventType})
		return
	}
	h.handlePush(w, r, service.ParseGitLabPush)
}

func (h *Handlers) handlePush(w http.ResponseWriter, r *http.Request, parse func([]byte) (*service.PushEvent, error)) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize*5))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	ev, err := parse(body)
	if err != nil {
		slog.WarnContext(r.Context(), "webhook payload rejected", "error", err)
		writeError(w, http.StatusBadRequest, "invalid push payload")
		return
	}
	req, ok := h.Webhooks.Trigger(r.Context(), ev)
	if !ok {
		writeJSON(w, http.StatusOK, webhookResponse{Status: "ignored", Event: "push", Repository: ev.Repository})
		return
	}
	writeJSON(w, http.StatusAccepted, webhookResponse{
		Status:     "accepted",
		Event:      "push",
		Repository: req.Repository,
		Project:    req.ProjectHint,
	})
}
