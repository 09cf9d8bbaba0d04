// Package extract isolates the natural-language carriers inside source
// code: comments and string literals. Scanning only those segments keeps
// code keywords and identifiers from tripping prose-oriented detectors.
package extract

import (
	"strings"
)

// ContentType names the syntax family used for extraction.
type ContentType string

const (
	TypeText    ContentType = "text"
	TypePython  ContentType = "python"
	TypeGeneric ContentType = "generic" // C-family: js, ts, java, c, cpp, go, rust, ...
)

// symbolRatioCeiling gates the whole-input fallback: input denser in code
// punctuation than this is code whose comments simply carried no prose,
// and returning it whole would reintroduce the keyword noise extraction
// exists to remove.
const symbolRatioCeiling = 0.05

var codeSymbols = map[byte]bool{
	'{': true, '}': true, '(': true, ')': true, ';': true,
	'<': true, '>': true, '=': true, '/': true, '*': true, '`': true,
}

// contentTypeAliases maps file extensions and language names onto the
// extraction families.
var contentTypeAliases = map[string]ContentType{
	"python": TypePython, "py": TypePython,
	"javascript": TypeGeneric, "js": TypeGeneric,
	"typescript": TypeGeneric, "ts": TypeGeneric,
	"java": TypeGeneric, "c": TypeGeneric, "cpp": TypeGeneric,
	"c++": TypeGeneric, "csharp": TypeGeneric, "cs": TypeGeneric,
	"go": TypeGeneric, "golang": TypeGeneric,
	"rust": TypeGeneric, "rs": TypeGeneric,
	"kotlin": TypeGeneric, "kt": TypeGeneric,
	"swift": TypeGeneric, "scala": TypeGeneric,
	"php": TypeGeneric,
	"text": TypeText, "txt": TypeText, "markdown": TypeText, "md": TypeText,
	"": TypeText,
}

// Normalize resolves a raw content-type string to an extraction family.
// Unknown types fall back to generic, which handles most curly-brace
// languages well enough.
func Normalize(contentType string) ContentType {
	if t, ok := contentTypeAliases[strings.ToLower(strings.TrimSpace(contentType))]; ok {
		return t
	}
	return TypeGeneric
}

// IsCode reports whether contentType names a source-code family, which
// is what routes content through the backdoor analyzer.
func IsCode(contentType string) bool {
	return Normalize(contentType) != TypeText
}

// Extract returns the natural-language segments of text for the given
// content type. Plain text passes through as a single segment. It never
// fails: pathological input yields either the generic extraction or,
// for prose-like input, the whole (normalized) text.
func Extract(text, contentType string) []string {
	switch Normalize(contentType) {
	case TypeText:
		if s := normalizeWhitespace(text); s != "" {
			return []string{s}
		}
		return nil
	case TypePython:
		return collapse(extractPython(text))
	default:
		segments := collapse(extractGeneric(text))
		if len(segments) == 0 && symbolRatio(text) < symbolRatioCeiling {
			if s := normalizeWhitespace(text); s != "" {
				return []string{s}
			}
		}
		return segments
	}
}

// extractPython pulls # comments and string literals, including
// triple-quoted docstrings.
func extractPython(text string) []string {
	var segments []string
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '#':
			end := lineEnd(text, i)
			segments = append(segments, text[i+1:end])
			i = end
		case c == '"' || c == '\'':
			seg, next := scanPythonString(text, i)
			if seg != "" {
				segments = append(segments, seg)
			}
			i = next
		default:
			i++
		}
	}
	return segments
}

// scanPythonString consumes a string literal starting at i and returns
// its contents plus the index just past the closing quote.
func scanPythonString(text string, i int) (string, int) {
	q := text[i]
	triple := string(q) + string(q) + string(q)
	if strings.HasPrefix(text[i:], triple) {
		start := i + 3
		if end := strings.Index(text[start:], triple); end >= 0 {
			return text[start : start+end], start + end + 3
		}
		return text[start:], len(text)
	}
	start := i + 1
	for j := start; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case q:
			return text[start:j], j + 1
		case '\n':
			// unterminated single-line literal
			return text[start:j], j + 1
		}
	}
	return text[start:], len(text)
}

// extractGeneric pulls line and block comments plus double-, single- and
// backtick-quoted literals for curly-brace languages.
func extractGeneric(text string) []string {
	var segments []string
	i := 0
	for i < len(text) {
		switch {
		case strings.HasPrefix(text[i:], "//"):
			end := lineEnd(text, i)
			segments = append(segments, text[i+2:end])
			i = end
		case strings.HasPrefix(text[i:], "/*"):
			start := i + 2
			if end := strings.Index(text[start:], "*/"); end >= 0 {
				segments = append(segments, text[start:start+end])
				i = start + end + 2
			} else {
				segments = append(segments, text[start:])
				i = len(text)
			}
		case text[i] == '"' || text[i] == '\'' || text[i] == '`':
			seg, next := scanGenericString(text, i)
			if seg != "" {
				segments = append(segments, seg)
			}
			i = next
		default:
			i++
		}
	}
	return segments
}

func scanGenericString(text string, i int) (string, int) {
	q := text[i]
	start := i + 1
	for j := start; j < len(text); j++ {
		switch text[j] {
		case '\\':
			if q != '`' {
				j++
			}
		case q:
			return text[start:j], j + 1
		case '\n':
			if q != '`' {
				return text[start:j], j + 1
			}
		}
	}
	return text[start:], len(text)
}

func lineEnd(text string, i int) int {
	if end := strings.IndexByte(text[i:], '\n'); end >= 0 {
		return i + end
	}
	return len(text)
}

// collapse normalizes whitespace and drops empty segments.
func collapse(segments []string) []string {
	var out []string
	for _, s := range segments {
		if n := normalizeWhitespace(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// symbolRatio reports the fraction of bytes that are code punctuation.
func symbolRatio(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	n := 0
	for i := 0; i < len(text); i++ {
		if codeSymbols[text[i]] {
			n++
		}
	}
	return float64(n) / float64(len(text))
}
