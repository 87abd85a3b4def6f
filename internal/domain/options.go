package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownMode is returned for an unsupported analysis mode.
	ErrUnknownMode = errors.New("unknown analysis mode")
	// ErrUnknownLanguage is returned for an unsupported code language.
	ErrUnknownLanguage = errors.New("unknown programming language")
	// ErrUnknownOutputLanguage is returned for an unsupported output language.
	ErrUnknownOutputLanguage = errors.New("unknown output language")
)

// Mode selects the kind of analysis requested from the model.
type Mode string

const (
	ModeExplain  Mode = "explain"
	ModeRefactor Mode = "refactor"
	ModeDebug    Mode = "debug"
	ModeOptimize Mode = "optimize"
	ModeSecurity Mode = "security"
	ModeFollowUp Mode = "followup"
)

// Modes lists the user-selectable analysis modes in display order.
// ModeFollowUp is internal and reached only through a prior analysis.
var Modes = []Mode{ModeExplain, ModeRefactor, ModeDebug, ModeOptimize, ModeSecurity}

var modeLabels = map[Mode]string{
	ModeExplain:  "📚 Explain Code",
	ModeRefactor: "🔧 Refactor Code",
	ModeDebug:    "🐛 Debug Code",
	ModeOptimize: "⚡ Optimize Performance",
	ModeSecurity: "🔒 Security Analysis",
	ModeFollowUp: "💬 Follow-up",
}

// Label returns the display label for the mode.
func (m Mode) Label() string {
	if l, ok := modeLabels[m]; ok {
		return l
	}
	return string(m)
}

// ParseMode parses a user-selectable mode. Empty input means ModeExplain.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeExplain, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// CodeLanguage identifies the programming language of submitted code.
type CodeLanguage string

const (
	LanguageAuto       CodeLanguage = "auto"
	LanguagePython     CodeLanguage = "python"
	LanguageJavaScript CodeLanguage = "javascript"
	LanguageCPP        CodeLanguage = "cpp"
	LanguageJava       CodeLanguage = "java"
	LanguageHTML       CodeLanguage = "html"
	LanguageCSS        CodeLanguage = "css"
	LanguagePHP        CodeLanguage = "php"
)

// CodeLanguages lists selectable languages in display order.
var CodeLanguages = []CodeLanguage{
	LanguageAuto, LanguagePython, LanguageJavaScript, LanguageCPP,
	LanguageJava, LanguageHTML, LanguageCSS, LanguagePHP,
}

var codeLanguageLabels = map[CodeLanguage]string{
	LanguageAuto:       "🤖 Auto-Detect",
	LanguagePython:     "🐍 Python",
	LanguageJavaScript: "⚡ JavaScript",
	LanguageCPP:        "⚙️ C++",
	LanguageJava:       "☕ Java",
	LanguageHTML:       "🌐 HTML",
	LanguageCSS:        "🎨 CSS",
	LanguagePHP:        "🔷 PHP",
}

// Label returns the display label for the language. Languages reported by
// detection outside the selectable set are shown as-is.
func (l CodeLanguage) Label() string {
	if s, ok := codeLanguageLabels[l]; ok {
		return s
	}
	return string(l)
}

// ParseCodeLanguage parses a selectable language. Empty input means LanguageAuto.
func ParseCodeLanguage(s string) (CodeLanguage, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LanguageAuto, nil
	}
	for _, l := range CodeLanguages {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
}

// OutputLanguage is the natural language the model should answer in.
type OutputLanguage string

// OutputOriginal leaves the response language to the model.
const OutputOriginal OutputLanguage = "none"

// OutputLanguages lists selectable output languages in display order.
var OutputLanguages = []OutputLanguage{"none", "en", "es", "hi", "fr", "de", "zh", "ja"}

var outputLanguageNames = map[OutputLanguage]string{
	"en": "English",
	"es": "Spanish",
	"hi": "Hindi",
	"fr": "French",
	"de": "German",
	"zh": "Chinese",
	"ja": "Japanese",
}

var outputLanguageLabels = map[OutputLanguage]string{
	"none": "🌍 Original",
	"en":   "🇺🇸 English",
	"es":   "🇪🇸 Spanish",
	"hi":   "🇮🇳 Hindi",
	"fr":   "🇫🇷 French",
	"de":   "🇩🇪 German",
	"zh":   "🇨🇳 Chinese",
	"ja":   "🇯🇵 Japanese",
}

// Name returns the English name of the language used in prompts.
func (o OutputLanguage) Name() string {
	if n, ok := outputLanguageNames[o]; ok {
		return n
	}
	return string(o)
}

// Label returns the display label.
func (o OutputLanguage) Label() string {
	if l, ok := outputLanguageLabels[o]; ok {
		return l
	}
	return string(o)
}

// IsTranslation reports whether a specific response language was requested.
func (o OutputLanguage) IsTranslation() bool {
	return o != "" && o != OutputOriginal
}

// ParseOutputLanguage parses an output language. Empty input means OutputOriginal.
func ParseOutputLanguage(s string) (OutputLanguage, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return OutputOriginal, nil
	}
	for _, o := range OutputLanguages {
		if string(o) == s {
			return o, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOutputLanguage, s)
}
