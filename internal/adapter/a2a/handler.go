// Package a2a exposes alignment verification as an Agent-to-Agent skill.
// Tasks run in the background; their state lives in the shared cache so
// any instance can answer a status poll.
package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/taskalign/internal/domain/alignment"
	"github.com/Strob0t/taskalign/internal/port/cache"
	"github.com/Strob0t/taskalign/internal/service"
)

const (
	taskKeyPrefix = "a2a:task:"
	maxBodySize   = 1 << 20
)

// Verifier runs one verification.
type Verifier interface {
	Verify(ctx context.Context, req alignment.Request) (*alignment.Report, error)
}

// Handler serves the A2A protocol endpoints.
type Handler struct {
	baseURL  string
	version  string
	verifier Verifier
	store    cache.Cache
	ttl      time.Duration
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewHandler creates an A2A handler. Task state is kept in store for ttl;
// each verification is bounded by timeout.
func NewHandler(baseURL, version string, v Verifier, store cache.Cache, ttl, timeout time.Duration) *Handler {
	return &Handler{
		baseURL:  baseURL,
		version:  version,
		verifier: v,
		store:    store,
		ttl:      ttl,
		timeout:  timeout,
	}
}

// MountRoutes registers A2A routes on the given chi router.
// These are mounted at the root level, not under /api/v1.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/.well-known/agent.json", h.handleAgentCard)
	r.Post("/a2a/tasks", h.handleCreateTask)
	r.Get("/a2a/tasks/{id}", h.handleGetTask)
}

// Wait blocks until every background task has finished.
func (h *Handler) Wait() { h.wg.Wait() }

func (h *Handler) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, BuildAgentCard(h.baseURL, h.version))
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if req.Skill != "" && req.Skill != SkillVerifyAlignment {
		writeError(w, http.StatusBadRequest, "unknown skill: "+req.Skill)
		return
	}

	areq, err := decodeInput(req.Input)
	if err == nil {
		err = service.ValidateRequest(&areq)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if _, found, err := h.load(ctx, req.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "task store unavailable")
		return
	} else if found {
		writeError(w, http.StatusConflict, "task already exists")
		return
	}

	resp := &TaskResponse{ID: req.ID, Status: StatusQueued}
	if err := h.save(ctx, resp); err != nil {
		slog.ErrorContext(ctx, "a2a task store failed", "id", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "task store unavailable")
		return
	}
	slog.InfoContext(ctx, "a2a task created", "id", req.ID, "repository", areq.Repository)

	h.wg.Add(1)
	go h.run(context.WithoutCancel(ctx), req.ID, areq)

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) run(ctx context.Context, id string, req alignment.Request) {
	defer h.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.update(ctx, &TaskResponse{ID: id, Status: StatusRunning})

	report, err := h.verifier.Verify(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "a2a task failed", "id", id, "error", err)
		h.update(ctx, &TaskResponse{ID: id, Status: StatusFailed, Error: err.Error()})
		return
	}
	h.update(ctx, &TaskResponse{ID: id, Status: StatusCompleted, Output: map[string]any{"report": report}})
}

func (h *Handler) update(ctx context.Context, resp *TaskResponse) {
	if err := h.save(ctx, resp); err != nil {
		slog.WarnContext(ctx, "a2a task update failed", "id", resp.ID, "status", resp.Status, "error", err)
	}
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	resp, found, err := h.load(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "task store unavailable")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) load(ctx context.Context, id string) (*TaskResponse, bool, error) {
	resp, found, err := cache.GetJSON[TaskResponse](ctx, h.store, taskKeyPrefix+id)
	if err != nil || !found {
		return nil, found, err
	}
	return &resp, true, nil
}

func (h *Handler) save(ctx context.Context, resp *TaskResponse) error {
	return cache.SetJSON(ctx, h.store, taskKeyPrefix+resp.ID, resp, h.ttl)
}

// decodeInput maps the free-form skill input onto a verification request.
func decodeInput(in map[string]any) (alignment.Request, error) {
	var req alignment.Request
	if len(in) == 0 {
		return req, errors.New("input is required")
	}
	if v, ok := in["status_filter"].(string); ok {
		in["status_filter"] = []string{v}
	}
	data, err := json.Marshal(in)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, errors.New("invalid input: " + err.Error())
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
