// Package alignment classifies tasks against their code evidence and
// aggregates the verdicts into a verification report.
package alignment

import (
	"time"

	"github.com/Strob0t/taskalign/internal/domain/evidence"
	"github.com/Strob0t/taskalign/internal/domain/task"
)

// DefaultMaxTasks is used when a Request does not set MaxTasks.
const DefaultMaxTasks = 100

// Verdict is the outcome of checking one task.
type Verdict string

const (
	VerdictAligned    Verdict = "aligned"
	VerdictMisaligned Verdict = "misaligned"
)

// Request is the input of a verification run.
type Request struct {
	Repository   string   `json:"repository"`
	ProjectHint  string   `json:"project,omitempty"`
	StatusFilter []string `json:"status_filter,omitempty"`
	MaxTasks     int      `json:"max_tasks,omitempty"`
}

// TaskResult is the classified outcome for one task.
type TaskResult struct {
	Task           task.Task         `json:"task"`
	Evidence       evidence.Evidence `json:"evidence"`
	Counts         evidence.Counts   `json:"evidence_counts"`
	Verdict        Verdict           `json:"verdict"`
	Rule           string            `json:"rule"`
	Warning        string            `json:"warning,omitempty"`
	Recommendation string            `json:"recommendation,omitempty"`
}

// Report is the result of one verification run. It is built once and
// never persisted.
type Report struct {
	ID                    string       `json:"id"`
	Repository            string       `json:"repository"`
	ResolvedProject       string       `json:"resolved_project,omitempty"`
	ProjectHint           string       `json:"project_hint,omitempty"`
	TasksAnalyzed         int          `json:"tasks_analyzed"`
	AlignmentScorePercent int          `json:"alignment_score_percent"`
	Aligned               []TaskResult `json:"aligned"`
	Misaligned            []TaskResult `json:"misaligned"`
	SummaryText           string       `json:"summary"`
	GeneratedAt           time.Time    `json:"generated_at"`
}
