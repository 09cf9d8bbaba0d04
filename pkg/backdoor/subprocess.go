package backdoor

import (
	"regexp"
	"strings"
)

var sensitiveBins = map[string]bool{
	"rm": true, "rmdir": true, "psql": true, "mysql": true, "mongo": true,
	"redis-cli": true, "pg_dump": true, "pg_restore": true, "dropdb": true,
	"sh": true, "bash": true, "curl": true, "wget": true, "nc": true,
	"python": true, "pip": true,
}

var sensitiveFlags = map[string]bool{
	"-rf": true, "--recursive": true, "--force": true,
	"--execute": true, "-e": true, "-c": true,
}

// processSinkRe matches process-spawn sinks across the languages the
// analyzer sees.
var processSinkRe = regexp.MustCompile(`\b(subprocess\.(?:run|call|check_call|check_output|Popen)|os\.system|os\.popen|exec\.Command|child_process\.(?:exec|execSync|spawn))\s*\(`)

var shellTrueRe = regexp.MustCompile(`shell\s*=\s*True`)

// SubprocessFinding records one process-spawn call and the traits that
// drove its score.
type SubprocessFinding struct {
	Sink         string `json:"sink"`
	DynamicArgs  bool   `json:"dynamic_args"`
	BinHit       bool   `json:"bin_hit"`
	FlagHit      bool   `json:"flag_hit"`
	SensitiveBin string `json:"sensitive_bin,omitempty"`
	ShellTrue    bool   `json:"shell_true"`
}

// analyzeSubprocess scores process-spawn calls additively per call:
// a base weight for reaching a spawn sink at all, more for sensitive
// binaries, destructive flags, dynamic argv, shell passthrough, and a
// bonus when multiple spawn calls appear. Capped at 0.9: static
// analysis alone never asserts certainty.
func analyzeSubprocess(code string) (float64, []SubprocessFinding) {
	var findings []SubprocessFinding
	score := 0.0

	for _, loc := range processSinkRe.FindAllStringSubmatchIndex(code, -1) {
		sink := code[loc[2]:loc[3]]
		argv := firstArgument(code, loc[1])

		f := SubprocessFinding{Sink: sink}
		literal := literalTokens(argv)
		f.DynamicArgs = argv == "" || len(literal) == 0
		for _, tok := range literal {
			base := tok
			if i := strings.LastIndexByte(tok, '/'); i >= 0 {
				base = tok[i+1:]
			}
			if sensitiveBins[base] {
				f.BinHit = true
				f.SensitiveBin = base
			}
			if sensitiveFlags[tok] {
				f.FlagHit = true
			}
		}
		callText := callWindow(code, loc[0])
		f.ShellTrue = shellTrueRe.MatchString(callText) ||
			sink == "os.system" || sink == "os.popen" ||
			strings.HasPrefix(sink, "child_process.exec")

		score += 0.15
		if f.BinHit {
			score += 0.25
		}
		if f.FlagHit {
			score += 0.20
		}
		if f.DynamicArgs {
			score += 0.20
		}
		// direct shell access is worth more than a plain spawn
		if sink == "os.system" || sink == "subprocess.Popen" {
			score += 0.10
		}
		if f.ShellTrue {
			score += 0.10
		}
		// sh/bash with -c is risky even with a fully literal argv
		if (f.SensitiveBin == "sh" || f.SensitiveBin == "bash") && f.FlagHit {
			score += 0.15
		}
		findings = append(findings, f)
	}

	if len(findings) >= 2 {
		score += 0.10
	}
	if score > 0.9 {
		score = 0.9
	}
	return score, findings
}

var quotedTokenRe = regexp.MustCompile(`['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`)

// literalTokens extracts the quoted string pieces of an argv expression
// and splits them into shell-ish tokens. Only literals are inspected;
// anything computed stays invisible to static analysis and is treated
// as dynamic by the caller.
func literalTokens(argv string) []string {
	var tokens []string
	for _, m := range quotedTokenRe.FindAllStringSubmatch(argv, -1) {
		for _, t := range strings.Fields(m[1]) {
			tokens = append(tokens, strings.ToLower(t))
		}
	}
	return tokens
}

// callWindow returns a bounded slice of code starting at the call site,
// wide enough to see keyword arguments like shell=True.
func callWindow(code string, start int) string {
	end := start + 200
	if end > len(code) {
		end = len(code)
	}
	return code[start:end]
}
