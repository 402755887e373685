package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	taotel "github.com/Strob0t/taskalign/internal/adapter/otel"
	"github.com/Strob0t/taskalign/internal/domain"
	"github.com/Strob0t/taskalign/internal/domain/alignment"
	"github.com/Strob0t/taskalign/internal/domain/evidence"
	"github.com/Strob0t/taskalign/internal/domain/task"
	"github.com/Strob0t/taskalign/internal/logger"
	"github.com/Strob0t/taskalign/internal/port/broadcast"
	"github.com/Strob0t/taskalign/internal/port/codehost"
	"github.com/Strob0t/taskalign/internal/port/messagequeue"
	"github.com/Strob0t/taskalign/internal/port/tracker"
	"github.com/Strob0t/taskalign/internal/workpool"
)

// configChecker is implemented by adapters that can tell, without a network
// call, whether their credentials are present.
type configChecker interface {
	CheckConfigured() error
}

// upstreamRecorder counts upstream calls that degraded to empty results.
type upstreamRecorder interface {
	RecordUpstreamFailure(ctx context.Context, upstream, operation string)
}

// degraded logs an upstream failure that is absorbed as an empty result.
func degraded(ctx context.Context, rec upstreamRecorder, upstream, operation string, err error, attrs ...any) {
	if rec != nil {
		rec.RecordUpstreamFailure(ctx, upstream, operation)
	}
	args := append([]any{"upstream", upstream, "operation", operation, "error", err}, attrs...)
	slog.WarnContext(ctx, "upstream call degraded to empty result", args...)
}

// AlignmentConfig tunes an AlignmentService.
type AlignmentConfig struct {
	MaxParallel     int
	DefaultMaxTasks int
	DomainHints     []evidence.DomainHint
}

// AlignmentService runs verifications: resolve tasks, collect evidence,
// classify and report.
type AlignmentService struct {
	tracker   tracker.Tracker
	host      codehost.Host
	resolver  *TaskResolver
	collector *EvidenceCollector

	defaultMaxTasks int
	notifications   *NotificationService
	events          messagequeue.Publisher
	live            broadcast.Broadcaster
	metrics         *taotel.Metrics
	now             func() time.Time
}

// NewAlignmentService creates an AlignmentService. Either port may be nil
// when its adapter could not be built; Verify then reports a configuration
// error.
func NewAlignmentService(t tracker.Tracker, h codehost.Host, cfg AlignmentConfig) *AlignmentService {
	s := &AlignmentService{
		tracker:         t,
		host:            h,
		defaultMaxTasks: cfg.DefaultMaxTasks,
		now:             time.Now,
	}
	if s.defaultMaxTasks <= 0 {
		s.defaultMaxTasks = alignment.DefaultMaxTasks
	}
	if t != nil {
		s.resolver = NewTaskResolver(t)
	}
	if h != nil {
		s.collector = NewEvidenceCollector(h, evidence.NewMatcher(cfg.DomainHints), workpool.New(cfg.MaxParallel))
	}
	return s
}

// SetNotifications sets the optional notification fan-out for misaligned reports.
func (s *AlignmentService) SetNotifications(n *NotificationService) { s.notifications = n }

// SetEvents sets the optional publisher for report events.
func (s *AlignmentService) SetEvents(p messagequeue.Publisher) { s.events = p }

// SetBroadcaster sets the optional live event feed.
func (s *AlignmentService) SetBroadcaster(b broadcast.Broadcaster) { s.live = b }

// SetMetrics sets the optional OpenTelemetry instruments.
func (s *AlignmentService) SetMetrics(m *taotel.Metrics) {
	s.metrics = m
	if s.resolver != nil {
		s.resolver.rec = m
	}
	if s.collector != nil {
		s.collector.rec = m
	}
}

// Providers returns the names of the configured tracker and code host.
func (s *AlignmentService) Providers() (trackerName, hostName string) {
	if s.tracker != nil {
		trackerName = s.tracker.Name()
	}
	if s.host != nil {
		hostName = s.host.Name()
	}
	return trackerName, hostName
}

// CheckConfigured reports missing collaborators or credentials, wrapped in
// domain.ErrConfig. It makes no upstream calls.
func (s *AlignmentService) CheckConfigured() error {
	var errs []error
	if s.tracker == nil {
		errs = append(errs, errors.New("task tracker is not configured"))
	} else if cc, ok := s.tracker.(configChecker); ok {
		if err := cc.CheckConfigured(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.host == nil {
		errs = append(errs, errors.New("code host is not configured"))
	} else if cc, ok := s.host.(configChecker); ok {
		if err := cc.CheckConfigured(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrConfig, errors.Join(errs...))
	}
	return nil
}

// ValidateRequest normalises req in place and checks the repository shape.
func ValidateRequest(req *alignment.Request) error {
	req.Repository = strings.Trim(strings.TrimSpace(req.Repository), "/")
	req.ProjectHint = strings.TrimSpace(req.ProjectHint)
	if req.Repository == "" {
		return fmt.Errorf("%w: repository is required", domain.ErrValidation)
	}
	parts := strings.Split(req.Repository, "/")
	if len(parts) < 2 {
		return fmt.Errorf("%w: repository must be owner/name, got %q", domain.ErrValidation, req.Repository)
	}
	for _, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t\n?#") {
			return fmt.Errorf("%w: invalid repository %q", domain.ErrValidation, req.Repository)
		}
	}
	if req.MaxTasks < 0 {
		return fmt.Errorf("%w: max_tasks must not be negative", domain.ErrValidation)
	}
	return nil
}

// Verify runs one verification. Only configuration and validation problems
// are returned as errors; upstream failures degrade to partial or empty
// evidence and the report is still produced.
func (s *AlignmentService) Verify(ctx context.Context, req alignment.Request) (report *alignment.Report, err error) {
	if err := ValidateRequest(&req); err != nil {
		return nil, err
	}
	if err := s.CheckConfigured(); err != nil {
		return nil, err
	}
	if req.MaxTasks <= 0 {
		req.MaxTasks = s.defaultMaxTasks
	}
	ctx = logger.WithRepository(ctx, req.Repository)

	if s.live != nil {
		s.live.BroadcastEvent(ctx, req.Repository, broadcast.EventVerifyStarted, broadcast.VerifyStartedEvent{
			Repository: req.Repository,
			Project:    req.ProjectHint,
			MaxTasks:   req.MaxTasks,
		})
	}

	start := s.now()
	ctx, span := taotel.StartVerifySpan(ctx, req.Repository, req.ProjectHint, req.MaxTasks)
	defer func() { taotel.EndSpan(span, err) }()

	projectKey, tasksFound := s.resolveTasks(ctx, &req)

	cctx, cspan := taotel.StartCollectSpan(ctx, req.Repository, len(tasksFound))
	history := s.collector.FetchHistory(cctx, req.Repository)
	evs := s.collector.Match(cctx, req.Repository, &history, tasksFound)
	taotel.EndSpan(cspan, nil)

	now := s.now()
	results := make([]alignment.TaskResult, len(tasksFound))
	for i := range tasksFound {
		results[i] = alignment.Evaluate(&tasksFound[i], &evs[i], now)
	}

	report = alignment.BuildReport(req.Repository, projectKey, req.ProjectHint, results)
	elapsed := s.now().Sub(start)
	s.metrics.RecordVerification(ctx, req.Repository, report.TasksAnalyzed, len(report.Misaligned), elapsed)

	slog.InfoContext(ctx, "alignment verified",
		"report_id", report.ID,
		"project", report.ResolvedProject,
		"tasks", report.TasksAnalyzed,
		"misaligned", len(report.Misaligned),
		"score", report.AlignmentScorePercent,
		"duration", elapsed,
	)

	s.notifications.NotifyReport(ctx, report)
	s.publishCompleted(ctx, report)
	return report, nil
}

func (s *AlignmentService) resolveTasks(ctx context.Context, req *alignment.Request) (string, []task.Task) {
	ctx, span := taotel.StartResolveSpan(ctx, req.ProjectHint)
	defer taotel.EndSpan(span, nil)

	projectKey, matched := s.resolver.ResolveProject(ctx, req.ProjectHint)
	if req.ProjectHint != "" {
		slog.DebugContext(ctx, "project resolved", "hint", req.ProjectHint, "key", projectKey, "matched", matched)
	}
	return projectKey, s.resolver.FetchTasks(ctx, projectKey, req.StatusFilter, req.MaxTasks)
}

func (s *AlignmentService) publishCompleted(ctx context.Context, r *alignment.Report) {
	if s.events == nil && s.live == nil {
		return
	}
	payload := CompletedPayload(r)
	if s.live != nil {
		s.live.BroadcastEvent(ctx, r.Repository, broadcast.EventVerifyCompleted, payload)
	}
	if s.events != nil {
		s.publish(ctx, messagequeue.SubjectReportCompleted, payload)
	}
}

// PublishFailed emits a report.failed event for a request that could not
// be verified.
func (s *AlignmentService) PublishFailed(ctx context.Context, req *alignment.Request, cause error) {
	payload := messagequeue.ReportFailedPayload{
		Repository: req.Repository,
		Project:    req.ProjectHint,
		Error:      cause.Error(),
	}
	if s.live != nil {
		s.live.BroadcastEvent(ctx, req.Repository, broadcast.EventVerifyFailed, payload)
	}
	if s.events != nil {
		s.publish(ctx, messagequeue.SubjectReportFailed, payload)
	}
}

func (s *AlignmentService) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.WarnContext(ctx, "encode event failed", "subject", subject, "error", err)
		return
	}
	if err := s.events.Publish(ctx, subject, data); err != nil {
		slog.WarnContext(ctx, "publish event failed", "subject", subject, "error", err)
	}
}

// CompletedPayload converts a report into its event payload.
func CompletedPayload(r *alignment.Report) messagequeue.ReportCompletedPayload {
	mis := make([]messagequeue.MisalignedTaskPayload, 0, len(r.Misaligned))
	for i := range r.Misaligned {
		m := &r.Misaligned[i]
		mis = append(mis, messagequeue.MisalignedTaskPayload{
			Key:            m.Task.Key,
			Status:         m.Task.StatusLabel,
			Warning:        m.Warning,
			Recommendation: m.Recommendation,
		})
	}
	return messagequeue.ReportCompletedPayload{
		ReportID:        r.ID,
		Repository:      r.Repository,
		ResolvedProject: r.ResolvedProject,
		TasksAnalyzed:   r.TasksAnalyzed,
		ScorePercent:    r.AlignmentScorePercent,
		Summary:         r.SummaryText,
		Misaligned:      mis,
		GeneratedAt:     r.GeneratedAt,
	}
}
