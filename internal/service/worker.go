package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Strob0t/taskalign/internal/domain"
	"github.com/Strob0t/taskalign/internal/domain/alignment"
	"github.com/Strob0t/taskalign/internal/port/messagequeue"
)

// VerifyWorker consumes alignment.verify.request messages and runs them.
// Reports are published by the Verifier itself.
type VerifyWorker struct {
	verifier Verifier
	queue    messagequeue.Queue
	cancel   func()
}

// NewVerifyWorker creates a worker reading from q.
func NewVerifyWorker(v Verifier, q messagequeue.Queue) *VerifyWorker {
	return &VerifyWorker{verifier: v, queue: q}
}

// Start subscribes to verify requests.
func (w *VerifyWorker) Start(ctx context.Context) error {
	cancel, err := w.queue.Subscribe(ctx, messagequeue.SubjectVerifyRequest, w.Handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", messagequeue.SubjectVerifyRequest, err)
	}
	w.cancel = cancel
	return nil
}

// Stop cancels the subscription.
func (w *VerifyWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// Handle runs one verify request. Requests that can never succeed
// (validation or configuration errors) publish a failure event and are
// acknowledged; other errors are returned so the message is redelivered.
func (w *VerifyWorker) Handle(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.VerifyRequestPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode verify request: %w", err)
	}
	req := alignment.Request{
		Repository:   p.Repository,
		ProjectHint:  p.Project,
		StatusFilter: p.StatusFilter,
		MaxTasks:     p.MaxTasks,
	}

	r, err := w.verifier.Verify(ctx, req)
	if err == nil {
		slog.DebugContext(ctx, "verify request handled", "report_id", r.ID, "repository", r.Repository)
		return nil
	}
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrConfig) {
		slog.WarnContext(ctx, "verify request rejected", "repository", req.Repository, "error", err)
		w.verifier.PublishFailed(ctx, &req, err)
		return nil
	}
	return err
}
