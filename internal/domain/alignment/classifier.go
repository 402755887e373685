package alignment

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/taskalign/internal/domain/evidence"
	"github.com/Strob0t/taskalign/internal/domain/task"
)

// RecentWindow bounds the commits inspected for completion signals.
const RecentWindow = 30 * 24 * time.Hour

var completionKeywords = []string{
	"fix", "complete", "done", "finish", "implement", "resolve", "feat:", "add",
}

// EvidenceCond constrains the evidence side of a Rule.
type EvidenceCond int

const (
	EvidenceAny EvidenceCond = iota
	EvidencePresent
	EvidenceNone
)

// CompletionCond constrains the recent-commit completion signal of a Rule.
type CompletionCond int

const (
	CompletionAny CompletionCond = iota
	CompletionPresent
	CompletionAbsent
)

// Input is everything the classifier looks at for one task.
// Completion is only meaningful for in-progress tasks with evidence.
type Input struct {
	Category    task.StatusCategory
	HasEvidence bool
	Completion  bool
}

// Outcome is the classifier result for one task.
type Outcome struct {
	Rule           string
	Verdict        Verdict
	Warning        string
	Recommendation string
}

var (
	evidenceNames   = [...]string{EvidenceAny: "any", EvidencePresent: "present", EvidenceNone: "none"}
	completionNames = [...]string{CompletionAny: "any", CompletionPresent: "present", CompletionAbsent: "absent"}
)

func (c EvidenceCond) String() string { return condName(evidenceNames[:], int(c)) }

func (c EvidenceCond) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *EvidenceCond) UnmarshalText(b []byte) error {
	i, err := condIndex(evidenceNames[:], string(b))
	*c = EvidenceCond(i)
	return err
}

func (c CompletionCond) String() string { return condName(completionNames[:], int(c)) }

func (c CompletionCond) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *CompletionCond) UnmarshalText(b []byte) error {
	i, err := condIndex(completionNames[:], string(b))
	*c = CompletionCond(i)
	return err
}

func condName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "any"
	}
	return names[i]
}

func condIndex(names []string, s string) (int, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown condition %q", s)
}

// Rule is one row of the classification table.
type Rule struct {
	Name           string              `json:"name"`
	Category       task.StatusCategory `json:"category"`
	Evidence       EvidenceCond        `json:"evidence"`
	Completion     CompletionCond      `json:"completion"`
	Verdict        Verdict             `json:"verdict"`
	Warning        string              `json:"warning,omitempty"`
	Recommendation string              `json:"recommendation,omitempty"`
}

func (r *Rule) matches(in Input) bool {
	if r.Category != in.Category {
		return false
	}
	switch r.Evidence {
	case EvidencePresent:
		if !in.HasEvidence {
			return false
		}
	case EvidenceNone:
		if in.HasEvidence {
			return false
		}
	}
	switch r.Completion {
	case CompletionPresent:
		return in.Completion
	case CompletionAbsent:
		return !in.Completion
	}
	return true
}

// Rules is the ordered classification table. For any Input exactly one
// rule matches.
var Rules = []Rule{
	{
		Name:           "done-without-evidence",
		Category:       task.CategoryDone,
		Evidence:       EvidenceNone,
		Verdict:        VerdictMisaligned,
		Warning:        "marked done, no code evidence",
		Recommendation: "Verify the work was delivered or reopen the task",
	},
	{
		Name:     "done-with-evidence",
		Category: task.CategoryDone,
		Evidence: EvidencePresent,
		Verdict:  VerdictAligned,
	},
	{
		Name:           "in-progress-without-evidence",
		Category:       task.CategoryInProgress,
		Evidence:       EvidenceNone,
		Verdict:        VerdictMisaligned,
		Warning:        "marked in-progress, no code evidence",
		Recommendation: "Push work-in-progress commits referencing the task key",
	},
	{
		Name:       "in-progress-active",
		Category:   task.CategoryInProgress,
		Evidence:   EvidencePresent,
		Completion: CompletionAbsent,
		Verdict:    VerdictAligned,
	},
	{
		Name:           "in-progress-looks-complete",
		Category:       task.CategoryInProgress,
		Evidence:       EvidencePresent,
		Completion:     CompletionPresent,
		Verdict:        VerdictMisaligned,
		Warning:        "looks complete, status stale — recommend Done",
		Recommendation: "Update Jira status to DONE",
	},
	{
		Name:           "todo-with-evidence",
		Category:       task.CategoryTodo,
		Evidence:       EvidencePresent,
		Verdict:        VerdictMisaligned,
		Warning:        "code exists before task started — recommend status update",
		Recommendation: "Move the task to IN PROGRESS or DONE",
	},
	{
		Name:     "todo-without-evidence",
		Category: task.CategoryTodo,
		Evidence: EvidenceNone,
		Verdict:  VerdictAligned,
	},
	{
		Name:           "unknown-status",
		Category:       task.CategoryUnknown,
		Evidence:       EvidenceAny,
		Verdict:        VerdictAligned,
		Warning:        "Status label not recognised, alignment not checked",
		Recommendation: "Map the status label to a known category",
	},
}

// Classify returns the outcome of the first rule in Rules matching in.
func Classify(in Input) Outcome {
	for i := range Rules {
		r := &Rules[i]
		if r.matches(in) {
			return Outcome{
				Rule:           r.Name,
				Verdict:        r.Verdict,
				Warning:        r.Warning,
				Recommendation: r.Recommendation,
			}
		}
	}
	// Unreachable for the four known categories.
	return Outcome{Rule: "default", Verdict: VerdictAligned}
}

// CompletionSignal reports whether a task's matched evidence suggests the
// work is finished: a commit from the last RecentWindow whose message holds
// a completion keyword, or a matched pull request that is closed or merged.
func CompletionSignal(commits []evidence.CommitRef, prs []evidence.PRRef, now time.Time) bool {
	cutoff := now.Add(-RecentWindow)
	for i := range commits {
		c := &commits[i]
		if c.Date.Before(cutoff) {
			continue
		}
		msg := strings.ToLower(c.Message)
		for _, kw := range completionKeywords {
			if strings.Contains(msg, kw) {
				return true
			}
		}
	}
	for i := range prs {
		if isClosedState(prs[i].State) {
			return true
		}
	}
	return false
}

func isClosedState(state string) bool {
	switch strings.ToLower(state) {
	case "closed", "merged":
		return true
	}
	return false
}

// Evaluate classifies a task against its evidence. The completion signal
// is only computed for in-progress tasks that have evidence, and it looks
// at every match rather than the displayed ones.
func Evaluate(t *task.Task, ev *evidence.Evidence, now time.Time) TaskResult {
	in := Input{Category: t.StatusCategory, HasEvidence: ev.HasEvidence()}
	if in.Category == task.CategoryInProgress && in.HasEvidence {
		in.Completion = CompletionSignal(ev.MatchedCommits(), ev.MatchedPullRequests(), now)
	}
	out := Classify(in)
	return TaskResult{
		Task:           *t,
		Evidence:       *ev,
		Counts:         ev.Counts,
		Verdict:        out.Verdict,
		Rule:           out.Rule,
		Warning:        out.Warning,
		Recommendation: out.Recommendation,
	}
}
