package analysis

import (
	"fmt"
	"strings"

	"github.com/ashureev/devgenie/internal/domain"
)

// Report returns a markdown report of a and a suggested download filename.
func Report(a *domain.Analysis) (body, filename string) {
	var b strings.Builder
	b.WriteString("# Code Analysis Report\n\n")
	if a.FileName != "" {
		fmt.Fprintf(&b, "**File:** %s\n\n", a.FileName)
	}
	fmt.Fprintf(&b, "## Code:\n```%s\n%s\n```\n\n", a.Language, a.Code)
	if a.Question != "" {
		fmt.Fprintf(&b, "## Question:\n%s\n\n", a.Question)
	}
	fmt.Fprintf(&b, "## Analysis:\n%s", a.Result)

	filename = fmt.Sprintf("analysis_%s.md", a.CreatedAt.Format("20060102_150405"))
	return b.String(), filename
}
