package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/taskalign/internal/domain"
	"github.com/Strob0t/taskalign/internal/domain/alignment"
)

// memStore is an in-memory cache.Cache.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type stubVerifier struct {
	mu   sync.Mutex
	reqs []alignment.Request
	err  error
}

func (v *stubVerifier) Verify(_ context.Context, req alignment.Request) (*alignment.Report, error) {
	v.mu.Lock()
	v.reqs = append(v.reqs, req)
	v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	return alignment.BuildReport(req.Repository, "SCRUM", req.ProjectHint, nil), nil
}

func newTestRouter(v Verifier) (*chi.Mux, *Handler) {
	h := NewHandler("http://localhost:8080", "test", v, &memStore{data: map[string][]byte{}}, time.Hour, 5*time.Second)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r, h
}

func createTask(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/a2a/tasks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getTask(t *testing.T, r http.Handler, id string) TaskResponse {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/a2a/tasks/"+id, http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp TaskResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestAgentCard(t *testing.T) {
	r, _ := newTestRouter(&stubVerifier{})
	req := httptest.NewRequest(http.MethodGet, "/.well-known/agent.json", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var card AgentCard
	if err := json.NewDecoder(w.Body).Decode(&card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if card.Name != "taskalign" || card.Version != "test" {
		t.Fatalf("unexpected card %s %s", card.Name, card.Version)
	}
	if len(card.Skills) != 1 || card.Skills[0].ID != SkillVerifyAlignment {
		t.Fatalf("expected the verify skill, got %+v", card.Skills)
	}
}

func TestCreateAndGetTask(t *testing.T) {
	v := &stubVerifier{}
	r, h := newTestRouter(v)

	w := createTask(r, `{"id":"test-1","skill":"verify-alignment","input":{"repository":"acme/api","project":"SCRUM","status_filter":"Done","max_tasks":5}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp TaskResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != StatusQueued {
		t.Fatalf("expected queued, got %s", resp.Status)
	}

	h.Wait()

	got := getTask(t, r, "test-1")
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", got.Status, got.Error)
	}
	report, ok := got.Output["report"].(map[string]any)
	if !ok || report["repository"] != "acme/api" {
		t.Fatalf("unexpected output %+v", got.Output)
	}

	if len(v.reqs) != 1 {
		t.Fatalf("expected 1 verification, got %d", len(v.reqs))
	}
	req := v.reqs[0]
	if req.ProjectHint != "SCRUM" || req.MaxTasks != 5 || len(req.StatusFilter) != 1 || req.StatusFilter[0] != "Done" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestTaskFailure(t *testing.T) {
	r, h := newTestRouter(&stubVerifier{err: fmt.Errorf("%w: GITHUB_TOKEN is not set", domain.ErrConfig)})

	if w := createTask(r, `{"id":"t-fail","input":{"repository":"acme/api"}}`); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	h.Wait()

	got := getTask(t, r, "t-fail")
	if got.Status != StatusFailed || got.Error == "" {
		t.Fatalf("expected failed with error, got %+v", got)
	}
}

func TestCreateTaskDuplicate(t *testing.T) {
	r, h := newTestRouter(&stubVerifier{})
	body := `{"id":"dup","input":{"repository":"acme/api"}}`
	if w := createTask(r, body); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	h.Wait()
	if w := createTask(r, body); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestCreateTaskRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid body", "not json"},
		{"missing id", `{"skill":"verify-alignment","input":{"repository":"acme/api"}}`},
		{"unknown skill", `{"id":"x","skill":"code-task","input":{"repository":"acme/api"}}`},
		{"missing input", `{"id":"x"}`},
		{"bad repository", `{"id":"x","input":{"repository":"acme"}}`},
		{"bad max_tasks", `{"id":"x","input":{"repository":"acme/api","max_tasks":"ten"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &stubVerifier{}
			r, h := newTestRouter(v)
			if w := createTask(r, tt.body); w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			h.Wait()
			if len(v.reqs) != 0 {
				t.Fatal("expected no verification for a rejected task")
			}
		})
	}
}

func TestGetTaskNotFound(t *testing.T) {
	r, _ := newTestRouter(&stubVerifier{})
	req := httptest.NewRequest(http.MethodGet, "/a2a/tasks/nonexistent", http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
