// Package semantic calls an external guard-model classifier for
// meaning-level screening of content that passed the pattern stage.
// The adapter is optional: without credentials it reports Unavailable
// and the pipeline proceeds on pattern results alone.
package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/sentinelsec/sentinel/pkg/detect"
	"github.com/sentinelsec/sentinel/pkg/httputil"
)

// Policy frames a classification request for the external model.
type Policy struct {
	Level      string   `json:"level"`
	Categories []string `json:"categories"`
	Direction  string   `json:"direction"`
	Focus      string   `json:"focus,omitempty"`
}

type request struct {
	Text   string `json:"text"`
	Policy Policy `json:"policy"`
}

type response struct {
	Flagged    bool     `json:"flagged"`
	Categories []string `json:"categories"`
	Reason     string   `json:"reason"`
	Confidence float64  `json:"confidence"`
}

// Outcome is the adapter's three-way result. Evaluated=false means the
// service could not be consulted (no credentials, timeout, transport or
// server failure) and carries no judgment about the content.
type Outcome struct {
	Evaluated  bool
	Flagged    bool
	Categories []detect.Category
	Findings   []detect.Finding
	Reason     string
	Confidence float64
}

// Unavailable is the Outcome for every degraded path.
var Unavailable = Outcome{}

// Client calls the external semantic classifier.
type Client struct {
	url     string
	apiKey  string
	timeout time.Duration
	http    *http.Client
}

// NewClient builds a semantic client. Returns nil when url or apiKey is
// empty; a nil *Client is valid and always reports Unavailable.
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	if url == "" || apiKey == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		url:     url,
		apiKey:  apiKey,
		timeout: timeout,
		http:    httputil.Client(httputil.TierFast),
	}
}

// Ready reports whether the adapter can be consulted.
func (c *Client) Ready() bool { return c != nil }

// Classify sends text to the external model. Never returns an error:
// every failure degrades to Unavailable with a logged warning.
func (c *Client) Classify(ctx context.Context, text string, pol Policy) Outcome {
	if c == nil {
		return Unavailable
	}

	body, err := json.Marshal(request{Text: text, Policy: pol})
	if err != nil {
		log.Printf("[WARN] semantic: request encode failed: %v", err)
		return Unavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		log.Printf("[WARN] semantic: request build failed: %v", err)
		return Unavailable
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[WARN] semantic: call failed: %v", err)
		return Unavailable
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		errBody, _ := httputil.ReadErrorBody(resp.Body)
		log.Printf("[WARN] semantic: status %d: %s", resp.StatusCode, truncate(string(errBody), 200))
		return Unavailable
	}

	data, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		log.Printf("[WARN] semantic: response read failed: %v", err)
		return Unavailable
	}
	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		log.Printf("[WARN] semantic: response decode failed: %v", err)
		return Unavailable
	}

	out := Outcome{
		Evaluated:  true,
		Flagged:    r.Flagged,
		Reason:     r.Reason,
		Confidence: r.Confidence,
	}
	for _, name := range r.Categories {
		cat, ok := mapCategory(name)
		if !ok {
			log.Printf("[WARN] semantic: unmapped category %q dropped", name)
			continue
		}
		out.Categories = append(out.Categories, cat)
		out.Findings = append(out.Findings, detect.Finding{
			Category:   cat,
			Pattern:    "semantic_classifier",
			Match:      truncate(r.Reason, 120),
			Confidence: r.Confidence,
			Source:     detect.SourceSemantic,
		})
	}
	// A flagged verdict with no mappable category still needs evidence
	// attached; file it under malicious instructions.
	if r.Flagged && len(out.Categories) == 0 {
		out.Categories = []detect.Category{detect.CategoryMalicious}
		out.Findings = []detect.Finding{{
			Category:   detect.CategoryMalicious,
			Pattern:    "semantic_classifier",
			Match:      truncate(r.Reason, 120),
			Confidence: r.Confidence,
			Source:     detect.SourceSemantic,
		}}
	}
	return out
}

// guardCategoryMap translates guard-model taxonomy names onto the
// pipeline's closed category set.
var guardCategoryMap = map[string]detect.Category{
	"jailbreak":              detect.CategoryJailbreak,
	"prompt_injection":       detect.CategoryPromptInjection,
	"secrets":                detect.CategorySecrets,
	"unsafe_api":             detect.CategoryUnsafeAPI,
	"obfuscation":            detect.CategoryObfuscation,
	"malicious_instructions": detect.CategoryMalicious,
	"illegal_content":        detect.CategoryIllegal,
	"license_risk":           detect.CategoryLicenseRisk,

	// LlamaGuard-style taxonomy names
	"violent_crimes":         detect.CategoryIllegal,
	"non_violent_crimes":     detect.CategoryIllegal,
	"weapons":                detect.CategoryIllegal,
	"indiscriminate_weapons": detect.CategoryIllegal,
	"privacy":                detect.CategorySecrets,
	"intellectual_property":  detect.CategoryLicenseRisk,
	"code_interpreter_abuse": detect.CategoryUnsafeAPI,
	"cybercrime":             detect.CategoryMalicious,
	"malware":                detect.CategoryMalicious,
}

func mapCategory(name string) (detect.Category, bool) {
	cat, ok := guardCategoryMap[name]
	return cat, ok
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
