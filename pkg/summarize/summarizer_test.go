package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sentinelsec/sentinel/pkg/backdoor"
	"github.com/sentinelsec/sentinel/pkg/detect"
)

func TestFallbackCleanInput(t *testing.T) {
	sum := Fallback(Input{Scan: &detect.ScanResult{}})
	if sum.Label != backdoor.RiskLow {
		t.Errorf("label = %s, want Low", sum.Label)
	}
	if sum.Source != "fallback" {
		t.Errorf("source = %s", sum.Source)
	}
	if !strings.Contains(sum.Rationale, "no threats") {
		t.Errorf("rationale = %q", sum.Rationale)
	}
}

func TestFallbackFlaggedScan(t *testing.T) {
	scan := &detect.ScanResult{
		Flagged:    true,
		Categories: []detect.Category{detect.CategoryPromptInjection},
	}

	sum := Fallback(Input{Scan: scan})
	if sum.Label != backdoor.RiskMedium {
		t.Errorf("flagged without block: label = %s, want Medium", sum.Label)
	}

	sum = Fallback(Input{Scan: scan, Blocked: true})
	if sum.Label != backdoor.RiskHigh {
		t.Errorf("blocked: label = %s, want High", sum.Label)
	}
	if !strings.Contains(sum.Rationale, "prompt_injection") {
		t.Errorf("rationale must name the category: %q", sum.Rationale)
	}
}

func TestFallbackTakesMaxSeverity(t *testing.T) {
	sum := Fallback(Input{
		Scan:     &detect.ScanResult{Flagged: true, Categories: []detect.Category{detect.CategoryObfuscation}},
		Backdoor: &backdoor.Verdict{Label: backdoor.RiskHigh, SQLRisk: 0.8},
	})
	if sum.Label != backdoor.RiskHigh {
		t.Errorf("label = %s, want High from backdoor verdict", sum.Label)
	}
	if !strings.Contains(sum.Rationale, "code artifact") {
		t.Errorf("rationale = %q", sum.Rationale)
	}
}

func TestSummarizeWithoutLLMUsesFallback(t *testing.T) {
	s := New("", "", "", time.Second)
	if s.Ready() {
		t.Fatal("unconfigured summarizer must not be ready")
	}
	sum := s.Summarize(context.Background(), Input{Scan: &detect.ScanResult{}})
	if sum.Source != "fallback" {
		t.Errorf("source = %s, want fallback", sum.Source)
	}
}

func TestSummarizeLLMPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("auth = %q", got)
		}
		var req struct {
			Temperature float64 `json:"temperature"`
		}
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"content": "```json\n{\"label\": \"Medium\", \"rationale\": \"patterns fired\"}\n```",
				},
			}},
		})
		json.NewDecoder(r.Body).Decode(&req)
		if req.Temperature != 0.1 {
			t.Errorf("temperature = %v, want 0.1", req.Temperature)
		}
		w.Write(body)
	}))
	defer srv.Close()

	s := New(srv.URL, "key", "test-model", time.Second)
	sum := s.Summarize(context.Background(), Input{Scan: &detect.ScanResult{Flagged: true}})

	if sum.Source != "llm" {
		t.Fatalf("source = %s, want llm", sum.Source)
	}
	if sum.Label != backdoor.RiskMedium || sum.Rationale != "patterns fired" {
		t.Errorf("summary = %+v", sum)
	}
}

func TestSummarizeLLMFailureFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}},
		{"garbage body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("certainly! here is some prose"))
		}},
		{"bad label", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{{
					"message": map[string]any{"content": `{"label": "Catastrophic", "rationale": "x"}`},
				}},
			})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			s := New(srv.URL, "key", "m", time.Second)
			sum := s.Summarize(context.Background(), Input{
				Scan:    &detect.ScanResult{Flagged: true, Categories: []detect.Category{detect.CategorySecrets}},
				Blocked: true,
			})
			if sum.Source != "fallback" {
				t.Errorf("source = %s, want fallback", sum.Source)
			}
			// fallback still reflects upstream severity
			if sum.Label != backdoor.RiskHigh {
				t.Errorf("label = %s, want High", sum.Label)
			}
		})
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		in     string
		want   backdoor.RiskLabel
		wantOK bool
	}{
		{"High", backdoor.RiskHigh, true},
		{"high", backdoor.RiskHigh, true},
		{"hi", backdoor.RiskHigh, true},
		{"MEDIUM", backdoor.RiskMedium, true},
		{"me", backdoor.RiskMedium, true},
		{"Low", backdoor.RiskLow, true},
		{"", "", false},
		{"extreme", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeLabel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("normalizeLabel(%q) = %v, %v", tt.in, got, ok)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"prose wrapped", `Sure thing: {"a":1} hope that helps`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.TrimSpace(extractJSON(tt.in))
			if got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
