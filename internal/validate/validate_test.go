package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name         string
		code         string
		maxLen       int
		wantErr      error
		wantWarnings int
	}{
		{"empty", "", 0, ErrEmptyCode, 0},
		{"whitespace", "  \n\t ", 0, ErrEmptyCode, 0},
		{"too long", strings.Repeat("x", 11), 10, ErrCodeTooLong, 0},
		{"at limit", strings.Repeat("x", 10), 10, nil, 0},
		{"plain", "print('hi')", 0, nil, 0},
		{"suspicious", "import os\nos.system('ls')", 0, nil, 1},
		{"suspicious uppercase", "EVAL(x)", 0, nil, 1},
		{"several patterns", "eval(a); exec(b)", 0, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings, err := Code(tt.code, tt.maxLen)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(warnings) != tt.wantWarnings {
				t.Errorf("warnings = %v, want %d", warnings, tt.wantWarnings)
			}
		})
	}
}

func TestCodeCountsRunes(t *testing.T) {
	if _, err := Code(strings.Repeat("é", 10), 10); err != nil {
		t.Errorf("10 runes should fit a 10-char limit: %v", err)
	}
}

func TestQuestion(t *testing.T) {
	if err := Question("  "); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("error = %v", err)
	}
	if err := Question("why?"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFile(t *testing.T) {
	if _, err := File("main.go", []byte("package main"), 0); !errors.Is(err, ErrFileType) {
		t.Errorf(".go error = %v", err)
	}
	if _, err := File("a.py", make([]byte, 11), 10); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("large error = %v", err)
	}
	if _, err := File("a.py", []byte{0xff, 0xfe}, 0); !errors.Is(err, ErrFileEncoding) {
		t.Errorf("binary error = %v", err)
	}
	got, err := File("App.JAVA", []byte("class App {}"), 0)
	if err != nil || got != "class App {}" {
		t.Errorf("File = %q, %v", got, err)
	}
}

func TestUserMessage(t *testing.T) {
	_, tooLong := Code(strings.Repeat("x", DefaultMaxCodeLength+1), 0)
	_, empty := Code(" ", 0)
	tests := []struct {
		err  error
		want string
	}{
		{tooLong, "Code is too long. Maximum 50,000 characters allowed."},
		{empty, "Code cannot be empty"},
		{Question(""), "Question cannot be empty"},
		{&LengthError{Max: 1200, Got: 1300}, "Code is too long. Maximum 1,200 characters allowed."},
		{errors.New("other"), "other"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
