package detect

import (
	"strings"
	"unicode"
)

const maxMatchLen = 120

// Detector maps text to findings for a single category. Implementations
// must be pure and safe for concurrent use.
type Detector interface {
	Category() Category
	Detect(text string) []Finding
}

// NewDetector returns the detector for cat. Every category in
// AllCategories has one.
func NewDetector(cat Category) Detector {
	if cat == CategoryObfuscation {
		return &obfuscationDetector{regexDetector{cat: cat}}
	}
	return &regexDetector{cat: cat}
}

// regexDetector runs every registered pattern for its category against
// the input and reports one finding per matching pattern.
type regexDetector struct {
	cat Category
}

func (d *regexDetector) Category() Category { return d.cat }

func (d *regexDetector) Detect(text string) []Finding {
	var findings []Finding
	for _, p := range Get().ByCategory(d.cat) {
		m := p.Regex.FindString(text)
		if m == "" {
			continue
		}
		findings = append(findings, Finding{
			Category:   d.cat,
			Pattern:    p.Name,
			Match:      clipMatch(m),
			Confidence: p.Confidence,
			Source:     SourceRegex,
		})
	}
	return findings
}

// obfuscationDetector extends the regex pass with rune-level analysis:
// invisible/bidi control characters and mixed-script homoglyph text
// evade pure regex detection.
type obfuscationDetector struct {
	regexDetector
}

func (d *obfuscationDetector) Detect(text string) []Finding {
	findings := d.regexDetector.Detect(text)

	if f, ok := detectInvisibleRunes(text); ok {
		findings = append(findings, f)
	}
	if f, ok := detectMixedScript(text); ok {
		findings = append(findings, f)
	}
	return findings
}

// invisibleRunes are zero-width and bidi-control code points commonly
// used to smuggle instructions past human review.
var invisibleRunes = map[rune]string{
	'\u200b': "ZERO WIDTH SPACE",
	'\u200c': "ZERO WIDTH NON-JOINER",
	'\u200d': "ZERO WIDTH JOINER",
	'\u2060': "WORD JOINER",
	'\ufeff': "ZERO WIDTH NO-BREAK SPACE",
	'\u202a': "LEFT-TO-RIGHT EMBEDDING",
	'\u202b': "RIGHT-TO-LEFT EMBEDDING",
	'\u202d': "LEFT-TO-RIGHT OVERRIDE",
	'\u202e': "RIGHT-TO-LEFT OVERRIDE",
	'\u2066': "LEFT-TO-RIGHT ISOLATE",
	'\u2067': "RIGHT-TO-LEFT ISOLATE",
}

func detectInvisibleRunes(text string) (Finding, bool) {
	var hits []string
	for _, r := range text {
		if name, ok := invisibleRunes[r]; ok {
			hits = append(hits, name)
			if len(hits) >= 3 {
				break
			}
		}
	}
	if len(hits) == 0 {
		return Finding{}, false
	}
	return Finding{
		Category:   CategoryObfuscation,
		Pattern:    "obf_invisible_runes",
		Match:      strings.Join(hits, ", "),
		Confidence: 0.85,
		Source:     SourceHeuristic,
	}, true
}

// detectMixedScript flags Latin text interleaved with Cyrillic or Greek
// lookalike letters. Whole words in a single non-Latin script are normal
// multilingual text and do not trigger.
func detectMixedScript(text string) (Finding, bool) {
	for _, word := range strings.Fields(text) {
		var latin, confusable bool
		for _, r := range word {
			switch {
			case r <= unicode.MaxASCII && unicode.IsLetter(r):
				latin = true
			case unicode.Is(unicode.Cyrillic, r) || unicode.Is(unicode.Greek, r):
				confusable = true
			}
		}
		if latin && confusable {
			return Finding{
				Category:   CategoryObfuscation,
				Pattern:    "obf_mixed_script",
				Match:      clipMatch(word),
				Confidence: 0.75,
				Source:     SourceHeuristic,
			}, true
		}
	}
	return Finding{}, false
}

func clipMatch(s string) string {
	if len(s) <= maxMatchLen {
		return s
	}
	clipped := s[:maxMatchLen]
	// back off to a rune boundary
	for len(clipped) > 0 && clipped[len(clipped)-1]&0xC0 == 0x80 {
		clipped = clipped[:len(clipped)-1]
	}
	return clipped + "..."
}
