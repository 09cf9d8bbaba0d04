// Package summarize turns the pipeline's raw stage verdicts into a
// human-readable risk summary, via an LLM when one is configured and a
// deterministic template otherwise. The summarizer never fails: any
// problem on the live path degrades to the fallback.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sentinelsec/sentinel/pkg/backdoor"
	"github.com/sentinelsec/sentinel/pkg/detect"
	"github.com/sentinelsec/sentinel/pkg/httputil"
)

// Summary is the pipeline's final risk statement.
type Summary struct {
	Label     backdoor.RiskLabel `json:"label"`
	Rationale string             `json:"rationale"`
	Source    string             `json:"source"` // "llm" or "fallback"
}

// Input carries the upstream verdicts the summarizer reasons over.
type Input struct {
	Scan     *detect.ScanResult
	Backdoor *backdoor.Verdict // nil when the artifact stage did not run
	Blocked  bool
}

// Summarizer produces risk summaries.
type Summarizer struct {
	url     string
	apiKey  string
	model   string
	timeout time.Duration
	http    *http.Client
}

// New builds a Summarizer. Empty url or apiKey means every call takes
// the fallback path.
func New(url, apiKey, model string, timeout time.Duration) *Summarizer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Summarizer{
		url:     url,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		http:    httputil.Client(httputil.TierMedium),
	}
}

// Ready reports whether the live LLM path is configured.
func (s *Summarizer) Ready() bool {
	return s != nil && s.url != "" && s.apiKey != ""
}

// Summarize produces the final risk summary. Never returns an error.
func (s *Summarizer) Summarize(ctx context.Context, in Input) Summary {
	if s.Ready() {
		if sum, err := s.summarizeLLM(ctx, in); err == nil {
			return sum
		} else {
			log.Printf("[WARN] summarizer: live path failed, using fallback: %v", err)
		}
	}
	return Fallback(in)
}

// Fallback derives the summary deterministically: the label is the
// maximum severity across upstream verdicts and the rationale is
// templated from what triggered.
func Fallback(in Input) Summary {
	label := backdoor.RiskLow
	var parts []string

	if in.Scan != nil && in.Scan.Flagged {
		label = backdoor.RiskMedium
		if in.Blocked {
			label = backdoor.RiskHigh
		}
		names := make([]string, len(in.Scan.Categories))
		for i, c := range in.Scan.Categories {
			names[i] = string(c)
		}
		parts = append(parts, fmt.Sprintf("content flagged for %s", strings.Join(names, ", ")))
	}
	if in.Backdoor != nil {
		label = MaxLabel(in.Backdoor.Label, label)
		if in.Backdoor.Label != backdoor.RiskLow {
			parts = append(parts, fmt.Sprintf(
				"code artifact graded %s (sql %.2f, subprocess %.2f)",
				in.Backdoor.Label, in.Backdoor.SQLRisk, in.Backdoor.SubprocessRisk))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "no threats detected")
	}
	return Summary{
		Label:     label,
		Rationale: strings.Join(parts, "; "),
		Source:    "fallback",
	}
}

var labelRank = map[backdoor.RiskLabel]int{
	backdoor.RiskLow:    0,
	backdoor.RiskMedium: 1,
	backdoor.RiskHigh:   2,
}

// MaxLabel returns the more severe of two risk labels.
func MaxLabel(a, b backdoor.RiskLabel) backdoor.RiskLabel {
	if labelRank[a] >= labelRank[b] {
		return a
	}
	return b
}

const systemPrompt = `You are a security analyst. Given scan verdicts from a content-safety pipeline, respond with JSON only: {"label": "Low"|"Medium"|"High", "rationale": "<one sentence>"}.`

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *Summarizer) summarizeLLM(ctx context.Context, in Input) (Summary, error) {
	verdicts, err := json.Marshal(in)
	if err != nil {
		return Summary{}, fmt.Errorf("encode verdicts: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(verdicts)},
		},
		Temperature: 0.1,
		MaxTokens:   200,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return Summary{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return Summary{}, fmt.Errorf("llm call: %w", err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		errBody, _ := httputil.ReadErrorBody(resp.Body)
		return Summary{}, fmt.Errorf("llm status %d: %s", resp.StatusCode, errBody)
	}

	data, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		return Summary{}, fmt.Errorf("read response: %w", err)
	}
	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return Summary{}, fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return Summary{}, fmt.Errorf("llm returned no choices")
	}

	var out struct {
		Label     string `json:"label"`
		Rationale string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(extractJSON(cr.Choices[0].Message.Content)), &out); err != nil {
		return Summary{}, fmt.Errorf("decode summary: %w", err)
	}
	label, ok := normalizeLabel(out.Label)
	if !ok || out.Rationale == "" {
		return Summary{}, fmt.Errorf("llm summary malformed: label=%q", out.Label)
	}
	return Summary{Label: label, Rationale: out.Rationale, Source: "llm"}, nil
}

// normalizeLabel maps model output onto the label set, tolerating case
// and truncation ("hi" means High, "me" means Medium).
func normalizeLabel(raw string) (backdoor.RiskLabel, bool) {
	switch s := strings.ToLower(strings.TrimSpace(raw)); {
	case strings.HasPrefix(s, "hi"):
		return backdoor.RiskHigh, true
	case strings.HasPrefix(s, "me"):
		return backdoor.RiskMedium, true
	case strings.HasPrefix(s, "lo"):
		return backdoor.RiskLow, true
	}
	return "", false
}

// extractJSON pulls the JSON object out of a model reply that may wrap
// it in markdown fences or prose.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, "```"); i >= 0 {
		content = content[i+3:]
		content = strings.TrimPrefix(content, "json")
		if j := strings.Index(content, "```"); j >= 0 {
			content = content[:j]
		}
	}
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}
