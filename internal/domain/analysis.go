package domain

import (
	"time"
	"unicode/utf8"
)

// Analysis is a single model response stored in a session's history.
// Follow-up answers carry the ID of the root analysis they refer to.
type Analysis struct {
	ID             string         `json:"id"`
	UserID         string         `json:"-"`
	SessionID      string         `json:"-"`
	ParentID       string         `json:"parent_id,omitempty"`
	Mode           Mode           `json:"mode"`
	Language       CodeLanguage   `json:"language"`
	OutputLanguage OutputLanguage `json:"output_language"`
	FileName       string         `json:"file_name,omitempty"`
	Code           string         `json:"code"`
	Question       string         `json:"question,omitempty"`
	Result         string         `json:"result"`
	Provider       string         `json:"provider,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// IsFollowUp reports whether the analysis answers a follow-up question.
func (a *Analysis) IsFollowUp() bool {
	return a.ParentID != ""
}

// RootID returns the ID of the analysis that starts this thread.
func (a *Analysis) RootID() string {
	if a.ParentID != "" {
		return a.ParentID
	}
	return a.ID
}

// Preview returns at most n runes of the code, suffixed with "..." when cut.
func (a *Analysis) Preview(n int) string {
	return Truncate(a.Code, n)
}

// Truncate cuts s to n runes and appends "..." if anything was removed.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
