package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/javiermolinar/examdesk/internal/exam"
)

const explainerSystemPrompt = `You help an exam timetabling officer understand student conflicts. Reply with JSON only.`

const explainerPromptTemplate = `%s was proposed for %s and clashes with other exams.

Conflicts (exam pairs sharing students):
%s
Alternative slots offered by the scheduler:
%s
Reply with exactly this JSON shape:
{"summary": "one sentence naming who is affected and why", "advice": ["short actionable step", "..."]}

Rules:
- At most 3 advice entries, each under 80 characters
- Only recommend alternatives from the list above
- Do not invent students, rooms or slots`

// ErrNothingToExplain is returned for a review with no conflicts.
var ErrNothingToExplain = errors.New("no conflicts to explain")

// ConflictReport is the input to an explanation.
type ConflictReport struct {
	Subject     string
	Target      exam.SlotRef
	Conflicts   []exam.ConflictRecord
	Suggestions []exam.Suggestion
}

// Explanation is a plain-language reading of a conflict report.
type Explanation struct {
	Summary string   `json:"summary"`
	Advice  []string `json:"advice"`
}

// Explainer turns conflict reports into explanations.
type Explainer struct {
	client Client
}

// NewExplainer creates an explainer backed by client.
func NewExplainer(client Client) *Explainer {
	return &Explainer{client: client}
}

// Explain asks the model to describe r.
func (e *Explainer) Explain(ctx context.Context, r ConflictReport) (*Explanation, error) {
	if len(r.Conflicts) == 0 {
		return nil, ErrNothingToExplain
	}

	var out Explanation
	err := e.client.ChatJSON(ctx, []Message{
		{Role: "system", Content: explainerSystemPrompt},
		{Role: "user", Content: BuildPrompt(r)},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("explaining conflicts: %w", err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return nil, errors.New("explanation has no summary")
	}
	if len(out.Advice) > 3 {
		out.Advice = out.Advice[:3]
	}
	return &out, nil
}

// BuildPrompt renders the user prompt for r.
func BuildPrompt(r ConflictReport) string {
	return fmt.Sprintf(explainerPromptTemplate, r.Subject, r.Target, FormatConflicts(r.Conflicts), formatSuggestions(r.Suggestions))
}

// FormatConflicts renders conflicts one per line. It is also used for the
// plain-text report copied from the conflict dialog.
func FormatConflicts(conflicts []exam.ConflictRecord) string {
	var b strings.Builder
	for _, c := range conflicts {
		fmt.Fprintf(&b, "- %s / %s: %d students", refLabel(c.First), refLabel(c.Second), len(c.Students))
		if names := studentNames(c.Students, 5); names != "" {
			fmt.Fprintf(&b, " (%s)", names)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func formatSuggestions(suggestions []exam.Suggestion) string {
	var b strings.Builder
	for _, s := range suggestions {
		if !s.Suggested {
			continue
		}
		fmt.Fprintf(&b, "- %s", s.SlotRef())
		if s.Room != "" {
			fmt.Fprintf(&b, " room %s", s.Room)
		}
		if s.Reason != "" {
			fmt.Fprintf(&b, ": %s", s.Reason)
		}
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return "- none\n"
	}
	return b.String()
}

func refLabel(r exam.ExamRef) string {
	if r.Title != "" {
		return r.Title
	}
	return fmt.Sprintf("group %d", r.GroupID)
}

func studentNames(students []exam.Student, limit int) string {
	names := make([]string, 0, limit)
	for _, s := range students {
		if len(names) == limit {
			names = append(names, "...")
			break
		}
		if s.Name != "" {
			names = append(names, s.Name)
		} else {
			names = append(names, s.ID)
		}
	}
	return strings.Join(names, ", ")
}
