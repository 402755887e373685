package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Strob0t/taskalign/internal/domain/alignment"
	"github.com/Strob0t/taskalign/internal/port/notifier"
)

// SourceMisaligned is the Notification.Source of misalignment summaries.
const SourceMisaligned = "alignment.misaligned"

// NotificationService dispatches notifications to all registered notifiers.
type NotificationService struct {
	notifiers     []notifier.Notifier
	enabledEvents map[string]bool
	minMisaligned int
}

// NewNotificationService creates a NotificationService with the given notifiers
// and list of enabled sources (e.g. "alignment.misaligned").
// If enabledEvents is nil or empty, all sources are enabled.
func NewNotificationService(notifiers []notifier.Notifier, enabledEvents []string) *NotificationService {
	enabled := make(map[string]bool, len(enabledEvents))
	for _, e := range enabledEvents {
		enabled[e] = true
	}
	return &NotificationService{
		notifiers:     notifiers,
		enabledEvents: enabled,
		minMisaligned: 1,
	}
}

// SetMinMisaligned sets how many misaligned tasks a report needs before
// NotifyReport sends anything. Values below 1 are treated as 1.
func (s *NotificationService) SetMinMisaligned(n int) {
	s.minMisaligned = max(1, n)
}

// Notify sends a notification to all registered notifiers.
// Errors are logged but do not interrupt delivery to other notifiers.
func (s *NotificationService) Notify(ctx context.Context, n notifier.Notification) {
	if len(s.enabledEvents) > 0 && !s.enabledEvents[n.Source] {
		return
	}

	for _, provider := range s.notifiers {
		if err := provider.Send(ctx, n); err != nil {
			slog.WarnContext(ctx, "notification send failed",
				"provider", provider.Name(),
				"title", n.Title,
				"error", err,
			)
			continue
		}
		slog.DebugContext(ctx, "notification sent", "provider", provider.Name(), "title", n.Title)
	}
}

// NotifyReport posts a summary of a report's misaligned tasks. Reports
// below the misalignment threshold are skipped.
func (s *NotificationService) NotifyReport(ctx context.Context, r *alignment.Report) {
	if s == nil || len(s.notifiers) == 0 || len(r.Misaligned) < s.minMisaligned {
		return
	}
	s.Notify(ctx, ReportNotification(r))
}

// NotifierCount returns the number of registered notifiers.
func (s *NotificationService) NotifierCount() int {
	return len(s.notifiers)
}

// ReportNotification renders a report as a notification: summary, score
// fields and one item per misaligned task.
func ReportNotification(r *alignment.Report) notifier.Notification {
	level := notifier.LevelWarning
	if r.AlignmentScorePercent < 50 {
		level = notifier.LevelError
	}

	fields := []notifier.Field{
		{Label: "Repository", Value: r.Repository},
		{Label: "Score", Value: strconv.Itoa(r.AlignmentScorePercent) + "%"},
		{Label: "Tasks analyzed", Value: strconv.Itoa(r.TasksAnalyzed)},
		{Label: "Misaligned", Value: strconv.Itoa(len(r.Misaligned))},
	}
	if r.ResolvedProject != "" {
		fields = append(fields, notifier.Field{Label: "Project", Value: r.ResolvedProject})
	}

	items := make([]string, 0, len(r.Misaligned))
	for i := range r.Misaligned {
		m := &r.Misaligned[i]
		line := fmt.Sprintf("%s (%s): %s", m.Task.Key, m.Task.StatusLabel, m.Warning)
		if m.Recommendation != "" {
			line += ". " + m.Recommendation
		}
		items = append(items, line)
	}

	return notifier.Notification{
		Title:   "Task alignment: " + r.Repository,
		Message: r.SummaryText,
		Level:   level,
		Source:  SourceMisaligned,
		Fields:  fields,
		Items:   items,
	}
}
