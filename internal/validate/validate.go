// Package validate checks user input before it is sent to the model.
package validate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

const (
	// DefaultMaxCodeLength is the largest code submission accepted, in characters.
	DefaultMaxCodeLength = 50000
	// DefaultMaxFileSize is the largest upload accepted, in bytes.
	DefaultMaxFileSize = 1 << 20
)

var (
	ErrEmptyCode     = errors.New("code cannot be empty")
	ErrCodeTooLong   = errors.New("code is too long")
	ErrEmptyQuestion = errors.New("question cannot be empty")
	ErrFileTooLarge  = errors.New("file is too large")
	ErrFileType      = errors.New("file type not supported")
	ErrFileEncoding  = errors.New("file is not valid UTF-8 text")
)

// AllowedExtensions lists the uploadable file extensions.
var AllowedExtensions = []string{".py", ".js", ".cpp", ".java", ".html", ".css", ".php"}

// LengthError reports a code submission over the character limit.
type LengthError struct {
	Max int
	Got int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("%v: maximum %d characters allowed, got %d", ErrCodeTooLong, e.Max, e.Got)
}

func (e *LengthError) Unwrap() error { return ErrCodeTooLong }

// UserMessage returns the sentence shown to the user for a rejected
// submission, or the error text for anything else.
func UserMessage(err error) string {
	var le *LengthError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &le):
		return fmt.Sprintf("Code is too long. Maximum %s characters allowed.", humanize.Comma(int64(le.Max)))
	case errors.Is(err, ErrCodeTooLong):
		return fmt.Sprintf("Code is too long. Maximum %s characters allowed.", humanize.Comma(DefaultMaxCodeLength))
	case errors.Is(err, ErrEmptyCode):
		return "Code cannot be empty"
	case errors.Is(err, ErrEmptyQuestion):
		return "Question cannot be empty"
	}
	return err.Error()
}

// SuspiciousWarning is attached to submissions containing execution primitives.
const SuspiciousWarning = "Potentially suspicious code patterns detected. Proceed with caution."

var suspiciousPatterns = []string{"eval(", "exec(", "__import__", "subprocess", "os.system"}

// Code checks a code submission. Warnings are advisory and never block the request.
func Code(code string, maxLen int) (warnings []string, err error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyCode
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxCodeLength
	}
	if n := utf8.RuneCountInString(code); n > maxLen {
		return nil, &LengthError{Max: maxLen, Got: n}
	}

	lower := strings.ToLower(code)
	for _, p := range suspiciousPatterns {
		if strings.Contains(lower, p) {
			warnings = append(warnings, SuspiciousWarning)
			break
		}
	}
	return warnings, nil
}

// Question checks a follow-up question.
func Question(q string) error {
	if strings.TrimSpace(q) == "" {
		return ErrEmptyQuestion
	}
	return nil
}

// IsAllowedFile reports whether the filename has an uploadable extension.
func IsAllowedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// File checks an uploaded file and returns its content as text.
func File(name string, content []byte, maxSize int64) (string, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if !IsAllowedFile(name) {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrFileType, name, strings.Join(AllowedExtensions, ", "))
	}
	if int64(len(content)) > maxSize {
		return "", fmt.Errorf("%w: %q exceeds %d bytes", ErrFileTooLarge, name, maxSize)
	}
	if !utf8.Valid(content) {
		return "", fmt.Errorf("%w: %q", ErrFileEncoding, name)
	}
	return string(content), nil
}
