package alignment

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Score returns round(100 * aligned / total), or 0 when total is 0.
func Score(aligned, total int) int {
	if total <= 0 {
		return 0
	}
	s := int(math.Round(100 * float64(aligned) / float64(total)))
	return max(0, min(100, s))
}

// BuildReport partitions results into aligned and misaligned (keeping
// evaluation order) and computes the score and summary text.
func BuildReport(repository, resolvedProject, projectHint string, results []TaskResult) *Report {
	r := &Report{
		ID:              uuid.NewString(),
		Repository:      repository,
		ResolvedProject: resolvedProject,
		ProjectHint:     projectHint,
		TasksAnalyzed:   len(results),
		Aligned:         make([]TaskResult, 0, len(results)),
		Misaligned:      make([]TaskResult, 0),
		GeneratedAt:     time.Now().UTC(),
	}

	for i := range results {
		if results[i].Verdict == VerdictMisaligned {
			r.Misaligned = append(r.Misaligned, results[i])
		} else {
			r.Aligned = append(r.Aligned, results[i])
		}
	}

	r.AlignmentScorePercent = Score(len(r.Aligned), r.TasksAnalyzed)
	r.SummaryText = summarize(r)
	return r
}

func summarize(r *Report) string {
	var b strings.Builder
	if r.TasksAnalyzed == 0 {
		b.WriteString("No tasks matched the criteria.")
	} else {
		fmt.Fprintf(&b, "%d/%d tasks aligned (%d%%). %d misalignment(s) found.",
			len(r.Aligned), r.TasksAnalyzed, r.AlignmentScorePercent, len(r.Misaligned))
	}
	if hint := strings.TrimSpace(r.ProjectHint); hint != "" && r.ResolvedProject != "" && hint != r.ResolvedProject {
		fmt.Fprintf(&b, " Project hint %q resolved to %s.", hint, r.ResolvedProject)
	}
	return b.String()
}
