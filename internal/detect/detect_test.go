package detect

import (
	"testing"

	"github.com/ashureev/devgenie/internal/domain"
)

func TestMapName(t *testing.T) {
	tests := map[string]domain.CodeLanguage{
		"Python":     domain.LanguagePython,
		"Python 2":   domain.LanguagePython,
		"JavaScript": domain.LanguageJavaScript,
		"C++":        domain.LanguageCPP,
		"Java":       domain.LanguageJava,
		"HTML":       domain.LanguageHTML,
		"CSS":        domain.LanguageCSS,
		"PHP":        domain.LanguagePHP,
		"Rust":       "rust",
	}
	for in, want := range tests {
		if got := mapName(in); got != want {
			t.Errorf("mapName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromFilename(t *testing.T) {
	tests := map[string]domain.CodeLanguage{
		"script.py": domain.LanguagePython,
		"Main.java": domain.LanguageJava,
		"style.css": domain.LanguageCSS,
	}
	for name, want := range tests {
		if got := FromFilename(name, ""); got != want {
			t.Errorf("FromFilename(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestLanguageShebang(t *testing.T) {
	code := "#!/usr/bin/env python\nprint('hello')\n"
	if got := Language(code); got != domain.LanguagePython {
		t.Errorf("Language = %q, want python", got)
	}
}

func TestResolveKeepsExplicitLanguage(t *testing.T) {
	if got := Resolve(domain.LanguageJava, "x.py", "print(1)"); got != domain.LanguageJava {
		t.Errorf("Resolve = %q, want java", got)
	}
	if got := Resolve(domain.LanguageAuto, "x.css", ""); got != domain.LanguageCSS {
		t.Errorf("Resolve auto = %q, want css", got)
	}
}

func TestLanguageFromContent(t *testing.T) {
	tests := []struct {
		name string
		code string
		want domain.CodeLanguage
	}{
		{"python", "import os\n\ndef main():\n    for name in os.listdir('.'):\n        print(name)\n\nif __name__ == '__main__':\n    main()\n", domain.LanguagePython},
		{"javascript", "function f() { console.log('x'); }\nconst a = 1;\ndocument.addEventListener('click', () => f());\n", domain.LanguageJavaScript},
		{"cpp", "#include <iostream>\n#include <vector>\n\nint main() {\n    std::vector<int> v{1, 2, 3};\n    for (auto x : v) std::cout << x << std::endl;\n    return 0;\n}\n", domain.LanguageCPP},
		{"java", "public class Main {\n    public static void main(String[] args) {\n        System.out.println(\"hi\");\n    }\n}\n", domain.LanguageJava},
		{"html", "<!DOCTYPE html>\n<html>\n<head><title>Hi</title></head>\n<body><div class=\"box\"><p>Hello</p></div></body>\n</html>\n", domain.LanguageHTML},
		{"css", "body {\n  margin: 0;\n  font-family: sans-serif;\n}\n\n.box:hover {\n  color: #333;\n  padding: 4px 8px;\n}\n", domain.LanguageCSS},
		{"php", "<?php echo 'hi'; ?>", domain.LanguagePHP},
		{"php script", "<?php\n$name = $_GET['name'];\nforeach ($items as $item) {\n    echo $item;\n}\n?>\n", domain.LanguagePHP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Language(tt.code); got != tt.want {
				t.Errorf("Language = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLanguageEmptyUsesDefault(t *testing.T) {
	if got := Language("  \n"); got != Default {
		t.Errorf("Language = %q, want %q", got, Default)
	}
}

func TestResolveAutoFromContent(t *testing.T) {
	if got := Resolve(domain.LanguageAuto, "", "<?php echo 'hi'; ?>"); got != domain.LanguagePHP {
		t.Errorf("Resolve = %q, want php", got)
	}
}
