package evidence

import (
	"reflect"
	"testing"

	"github.com/Strob0t/taskalign/internal/domain/task"
)

func TestMatcher_Matches(t *testing.T) {
	m := NewMatcher(nil)
	tk := task.New("SCRUM-5", "Login page validation errors", "Done", "")

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"verbatim key", "fix SCRUM-5 login bug", true},
		{"lowercase key", "scrum-5: tidy", true},
		{"key without hyphen", "feature/scrum5-cleanup", true},
		{"key with space", "Closes SCRUM 5", true},
		{"two keywords", "Improve login validation messages", true},
		{"one keyword", "Refactor login handler", false},
		{"unrelated", "Bump dependencies", false},
		{"empty", "", false},
		{"blank", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Matches(&tk, tt.text); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestMatcher_ZeroKeywordsStillMatchesKey(t *testing.T) {
	m := NewMatcher(nil)
	tk := task.New("OPS-42", "", "Done", "")
	if len(tk.Keywords) != 0 {
		t.Fatalf("expected no keywords, got %v", tk.Keywords)
	}
	if !m.Matches(&tk, "hotfix for ops-42") {
		t.Fatal("expected key match without keywords")
	}
	if m.Matches(&tk, "hotfix for infra") {
		t.Fatal("expected no match for unrelated text")
	}
}

func TestMatcher_DomainHint(t *testing.T) {
	m := NewMatcher([]DomainHint{
		{Pattern: "PAY-", Keywords: []string{"Stripe", "webhook", "invoice"}},
		{Pattern: "", Keywords: []string{"ignored"}},
	})
	tk := task.New("PAY-7", "Billing", "Done", "")

	if !m.Matches(&tk, "handle stripe webhook retries") {
		t.Fatal("expected hint match with two hint keywords")
	}
	if m.Matches(&tk, "handle stripe retries") {
		t.Fatal("expected no hint match with one hint keyword")
	}

	other := task.New("OPS-7", "Billing", "Done", "")
	if m.Matches(&other, "handle stripe webhook retries") {
		t.Fatal("hint must only apply to keys matching its pattern")
	}
}

func TestMatcher_CodeSearchTerms(t *testing.T) {
	m := NewMatcher(nil)

	tk := task.New("SCRUM-9", "Payment retry queue backoff", "To Do", "")
	got := m.CodeSearchTerms(&tk)
	want := []string{"SCRUM-9", "payment", "retry"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	bare := task.New("SCRUM-10", "", "To Do", "")
	if got := m.CodeSearchTerms(&bare); !reflect.DeepEqual(got, []string{"SCRUM-10"}) {
		t.Fatalf("expected key only, got %v", got)
	}
}
