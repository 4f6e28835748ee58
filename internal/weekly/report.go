package weekly

import (
	"fmt"
	"strings"
	"time"

	"github.com/AyumuKobayashiproducts/workflow-copilot-ai/internal/task"
)

// ReportInput collects everything the formatter needs for one week.
type ReportInput struct {
	WorkspaceName string
	WeekStart     time.Time
	Summary       task.WeekSummary
	DoneTitles    []string
	TodoTitles    []string
	Note          string
}

// BuildReport renders a plain-text weekly report. The caller may store
// or edit the result before sharing it.
func BuildReport(in ReportInput) string {
	weekEnd := in.WeekStart.AddDate(0, 0, 6)

	var b strings.Builder
	fmt.Fprintf(&b, "Weekly Report — %s (%s – %s)\n\n",
		in.WorkspaceName,
		in.WeekStart.Format("Jan 2"),
		weekEnd.Format("Jan 2, 2006"))

	fmt.Fprintf(&b, "Highlights (%d done)\n", in.Summary.Done)
	if len(in.DoneTitles) == 0 {
		b.WriteString("- (nothing completed this week)\n")
	}
	for _, t := range in.DoneTitles {
		fmt.Fprintf(&b, "- %s\n", t)
	}

	b.WriteString("\nChallenges\n")
	if note := strings.TrimSpace(in.Note); note != "" {
		for _, line := range strings.Split(note, "\n") {
			fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(line))
		}
	} else {
		b.WriteString("- (no notes)\n")
	}

	fmt.Fprintf(&b, "\nNext week (%d open)\n", in.Summary.Todo)
	if len(in.TodoTitles) == 0 {
		b.WriteString("- (no open tasks)\n")
	}
	for _, t := range in.TodoTitles {
		fmt.Fprintf(&b, "- %s\n", t)
	}

	out := b.String()
	if len([]rune(out)) > ReportMaxChars {
		out = string([]rune(out)[:ReportMaxChars])
	}
	return out
}
