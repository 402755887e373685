package messagequeue

import "time"

// VerifyRequestPayload is the schema for alignment.verify.request messages.
type VerifyRequestPayload struct {
	Repository   string   `json:"repository"`
	Project      string   `json:"project,omitempty"`
	StatusFilter []string `json:"status_filter,omitempty"`
	MaxTasks     int      `json:"max_tasks,omitempty"`
}

// MisalignedTaskPayload summarises one misaligned task.
type MisalignedTaskPayload struct {
	Key            string `json:"key"`
	Status         string `json:"status"`
	Warning        string `json:"warning"`
	Recommendation string `json:"recommendation,omitempty"`
}

// ReportCompletedPayload is the schema for alignment.report.completed messages.
type ReportCompletedPayload struct {
	ReportID        string                  `json:"report_id"`
	Repository      string                  `json:"repository"`
	ResolvedProject string                  `json:"resolved_project,omitempty"`
	TasksAnalyzed   int                     `json:"tasks_analyzed"`
	ScorePercent    int                     `json:"alignment_score_percent"`
	Summary         string                  `json:"summary"`
	Misaligned      []MisalignedTaskPayload `json:"misaligned"`
	GeneratedAt     time.Time               `json:"generated_at"`
}

// ReportFailedPayload is the schema for alignment.report.failed messages.
type ReportFailedPayload struct {
	Repository string `json:"repository"`
	Project    string `json:"project,omitempty"`
	Error      string `json:"error"`
}
