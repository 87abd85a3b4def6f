// Package detect guesses the programming language of a code snippet.
package detect

import (
	"log/slog"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/go-enry/go-enry/v2"

	"github.com/ashureev/devgenie/internal/domain"
)

// Default is reported when no lexer recognizes the code.
const Default = domain.LanguagePython

var lexerNames = map[string]domain.CodeLanguage{
	"python":     domain.LanguagePython,
	"python 2":   domain.LanguagePython,
	"javascript": domain.LanguageJavaScript,
	"c++":        domain.LanguageCPP,
	"java":       domain.LanguageJava,
	"html":       domain.LanguageHTML,
	"css":        domain.LanguageCSS,
	"php":        domain.LanguagePHP,
}

// classifierCandidates are the linguist names the content classifier picks from.
var classifierCandidates = []string{"Python", "JavaScript", "C++", "Java", "HTML", "CSS", "PHP"}

// Language guesses the language of code from its content alone. Lexer
// analysers (shebangs, doctypes) win when they name a supported language;
// otherwise a Bayesian classifier chooses among the supported languages.
func Language(code string) domain.CodeLanguage {
	if strings.TrimSpace(code) == "" {
		return Default
	}
	if lexer := lexers.Analyse(code); lexer != nil {
		if l := fromLexer(lexer); isSupported(l) {
			return l
		}
	}
	if name, _ := enry.GetLanguageByShebang([]byte(code)); name != "" {
		return mapName(name)
	}
	name, _ := enry.GetLanguageByClassifier([]byte(code), classifierCandidates)
	if name == "" {
		slog.Debug("Could not detect language, using default", "default", Default)
		return Default
	}
	return mapName(name)
}

// FromFilename prefers the filename extension and falls back to content analysis.
func FromFilename(name, code string) domain.CodeLanguage {
	if name != "" {
		if lexer := lexers.Match(name); lexer != nil {
			return fromLexer(lexer)
		}
	}
	return Language(code)
}

// Resolve returns lang unless it is LanguageAuto, in which case the language
// is detected from the filename and code.
func Resolve(lang domain.CodeLanguage, fileName, code string) domain.CodeLanguage {
	if lang != "" && lang != domain.LanguageAuto {
		return lang
	}
	return FromFilename(fileName, code)
}

func isSupported(l domain.CodeLanguage) bool {
	for _, v := range lexerNames {
		if v == l {
			return true
		}
	}
	return false
}

func fromLexer(lexer chroma.Lexer) domain.CodeLanguage {
	return mapName(lexer.Config().Name)
}

// mapName normalizes a lexer name. Names outside the supported set are
// passed through lowercased so the prompt still carries a useful label.
func mapName(name string) domain.CodeLanguage {
	lower := strings.ToLower(name)
	if l, ok := lexerNames[lower]; ok {
		return l
	}
	return domain.CodeLanguage(lower)
}
