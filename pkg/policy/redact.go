package policy

import "regexp"

// redactionRules cover the credential shapes that must never leave the
// pipeline verbatim when redact_on_output is in force.
var redactionRules = []struct {
	name    string
	re      *regexp.Regexp
	replace string
}{
	{"private_key", regexp.MustCompile(`-----BEGIN (?:RSA|DSA|EC|OPENSSH|PGP)? ?PRIVATE KEY(?: BLOCK)?-----[\s\S]*?-----END (?:RSA|DSA|EC|OPENSSH|PGP)? ?PRIVATE KEY(?: BLOCK)?-----`), "[REDACTED PRIVATE KEY]"},
	{"aws_access_key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), "[REDACTED AWS KEY]"},
	{"github_token", regexp.MustCompile(`\bgh[pousr]_[0-9A-Za-z]{36,}\b`), "[REDACTED TOKEN]"},
	{"slack_token", regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9\-]{10,}\b`), "[REDACTED TOKEN]"},
	{"stripe_key", regexp.MustCompile(`\b[sr]k_live_[0-9a-zA-Z]{16,}\b`), "[REDACTED KEY]"},
	{"jwt", regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]{10,}\.[A-Za-z0-9_\-]{10,}\.[A-Za-z0-9_\-]{10,}\b`), "[REDACTED JWT]"},
	{"bearer", regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\.\-_~\+\/]{20,}`), "${1}[REDACTED]"},
	{"credential_assign", regexp.MustCompile(`(?i)((?:api[_-]?key|secret[_-]?key|auth[_-]?token|password)\s*[:=]\s*)['"]?[^'"\s]{8,}['"]?`), "${1}[REDACTED]"},
	{"db_uri", regexp.MustCompile(`(?i)((?:postgres|postgresql|mysql|mongodb(?:\+srv)?|redis)://[^:/\s]*:)[^@\s]+@`), "${1}[REDACTED]@"},
}

// Redact replaces credential material in text with placeholder markers.
// Idempotent: redacting already-redacted text is a no-op.
func Redact(text string) string {
	for _, rule := range redactionRules {
		text = rule.re.ReplaceAllString(text, rule.replace)
	}
	return text
}
