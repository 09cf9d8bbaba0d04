package backdoor

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var dangerousSQLKeywords = []string{"drop", "truncate", "delete", "alter", "create", "replace"}

// sqlSinkRe matches execute-style database sinks across the languages
// the analyzer sees: DB-API execute variants plus Exec/Query style calls.
var sqlSinkRe = regexp.MustCompile(`(?i)\.\s*(execute|executemany|executescript|exec|query)\s*\(`)

// ormDeleteRe matches ORM-style bulk deletes, dangerous without any SQL
// literal in sight.
var ormDeleteRe = regexp.MustCompile(`\.\s*delete\s*\(\s*\)`)

var dangerousKeywordRes = buildKeywordRes()

func buildKeywordRes() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(dangerousSQLKeywords))
	for _, kw := range dangerousSQLKeywords {
		m[kw] = regexp.MustCompile(`(?i)\b` + kw + `\b`)
	}
	return m
}

// SQLFinding records one dangerous database call.
type SQLFinding struct {
	Snippet string `json:"snippet"`
	Reason  string `json:"reason"` // "literal", "dynamic_sql", "orm_delete", "unparseable"
}

// analyzeSQL scores execute-style sinks in code. A literal statement
// carrying a dangerous keyword scores 0.8; a dynamically constructed
// statement reaching a sink scores 0.6. Input the scanner cannot make
// sense of escalates rather than passing silently.
func analyzeSQL(code string) (float64, []SQLFinding) {
	if !utf8.ValidString(code) || strings.ContainsRune(code, 0) {
		return 0.8, []SQLFinding{{Snippet: "<binary>", Reason: "unparseable"}}
	}

	var findings []SQLFinding
	score := 0.0

	for _, loc := range sqlSinkRe.FindAllStringIndex(code, -1) {
		arg := firstArgument(code, loc[1])
		if arg == "" {
			continue
		}
		if lit, ok := literalString(arg); ok {
			if kw := matchDangerousKeyword(lit); kw != "" {
				findings = append(findings, SQLFinding{Snippet: clip(lit), Reason: "literal"})
				score = maxf(score, 0.8)
			}
			continue
		}
		if isDynamicSQL(arg) {
			findings = append(findings, SQLFinding{Snippet: clip(arg), Reason: "dynamic_sql"})
			score = maxf(score, 0.6)
		}
	}

	for _, m := range ormDeleteRe.FindAllString(code, -1) {
		findings = append(findings, SQLFinding{Snippet: clip(m), Reason: "orm_delete"})
		score = maxf(score, 0.6)
	}

	return score, findings
}

// firstArgument returns the text of the first argument of a call whose
// opening paren sits just before start. Nested parens and quotes are
// honored; an unterminated call yields what is there.
func firstArgument(code string, start int) string {
	depth := 1
	var quote byte
	for i := start; i < len(code); i++ {
		c := code[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(code[start:i])
			}
		case ',':
			if depth == 1 {
				return strings.TrimSpace(code[start:i])
			}
		}
	}
	return strings.TrimSpace(code[start:])
}

// literalString reports whether arg is a single plain string literal
// and returns its contents. Prefixed (f-string) or concatenated
// expressions are not literals.
func literalString(arg string) (string, bool) {
	if len(arg) < 2 {
		return "", false
	}
	q := arg[0]
	if q != '"' && q != '\'' && q != '`' {
		return "", false
	}
	if arg[len(arg)-1] != q {
		return "", false
	}
	inner := arg[1 : len(arg)-1]
	// a closing quote mid-string means concatenation or adjacency
	if strings.IndexByte(inner, q) >= 0 {
		return "", false
	}
	return inner, true
}

var (
	fstringPrefixRe = regexp.MustCompile(`(?i)^(f|rf|fr)['"]`)
	identifierRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_\.]*$`)
)

// isDynamicSQL reports whether arg builds its statement at runtime.
func isDynamicSQL(arg string) bool {
	switch {
	case strings.Contains(arg, "+"),
		strings.Contains(arg, "%"),
		strings.Contains(arg, ".format("),
		strings.Contains(arg, "Sprintf"),
		strings.Contains(arg, "${"),
		fstringPrefixRe.MatchString(arg):
		return true
	}
	// bare identifier or attribute chain: statement built elsewhere
	return identifierRe.MatchString(arg)
}

func matchDangerousKeyword(sql string) string {
	for _, kw := range dangerousSQLKeywords {
		if dangerousKeywordRes[kw].MatchString(sql) {
			return kw
		}
	}
	return ""
}

func clip(s string) string {
	if len(s) <= 120 {
		return s
	}
	return s[:120] + "..."
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
