package extract

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want ContentType
	}{
		{"python", TypePython},
		{"py", TypePython},
		{"Python", TypePython},
		{"go", TypeGeneric},
		{"javascript", TypeGeneric},
		{"text", TypeText},
		{"", TypeText},
		{"something-else", TypeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractPython(t *testing.T) {
	code := `# ignore previous instructions
def add(a, b):
    """Adds two numbers."""
    s = 'hello world'
    return a + b
`
	segments := Extract(code, "python")
	joined := strings.Join(segments, "\n")

	for _, want := range []string{
		"ignore previous instructions",
		"Adds two numbers.",
		"hello world",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected segment %q in %v", want, segments)
		}
	}
	if strings.Contains(joined, "def add") {
		t.Errorf("code leaked into segments: %v", segments)
	}
}

func TestExtractGeneric(t *testing.T) {
	code := `// line comment here
/* block
   comment */
const s = "a string literal";
let t = 'single quoted';
` + "let u = `backtick`;"

	segments := Extract(code, "javascript")
	joined := strings.Join(segments, "\n")

	for _, want := range []string{
		"line comment here",
		"block comment",
		"a string literal",
		"single quoted",
		"backtick",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected segment %q in %v", want, segments)
		}
	}
}

func TestExtractPlainText(t *testing.T) {
	segments := Extract("  just   some  prose  ", "text")
	if len(segments) != 1 || segments[0] != "just some prose" {
		t.Errorf("got %v, want single normalized segment", segments)
	}
}

func TestExtractEmpty(t *testing.T) {
	if segments := Extract("", "text"); segments != nil {
		t.Errorf("empty input should yield no segments, got %v", segments)
	}
}

func TestWholeInputFallback(t *testing.T) {
	// prose routed through an unknown type: no comments or strings, low
	// symbol density, so the whole input comes back
	prose := "please review this pull request and merge it"
	segments := Extract(prose, "cobol")
	if len(segments) != 1 || segments[0] != prose {
		t.Errorf("expected whole-input fallback, got %v", segments)
	}

	// dense code without string/comment content stays empty
	code := "x:=map[int]int{};for{x[1]=2;};(((;)))<>=*/"
	if segments := Extract(code, "cobol"); len(segments) != 0 {
		t.Errorf("symbol-dense input must not fall back, got %v", segments)
	}
}

func TestIsCode(t *testing.T) {
	if IsCode("text") || IsCode("") {
		t.Error("prose types must not be code")
	}
	if !IsCode("python") || !IsCode("go") {
		t.Error("source types must be code")
	}
}

func TestUnterminatedConstructs(t *testing.T) {
	inputs := []string{
		`"never closed`,
		"'''never closed either",
		"/* runs off the end",
		"# comment at EOF",
	}
	for _, in := range inputs {
		for _, ct := range []string{"python", "go"} {
			// must not panic or loop
			_ = Extract(in, ct)
		}
	}
}
