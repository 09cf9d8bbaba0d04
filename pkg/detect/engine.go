package detect

import (
	"context"
	"log"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/sentinelsec/sentinel/pkg/httputil"
)

// Engine runs the enabled detectors concurrently and merges their
// findings into one ScanResult. Safe for concurrent use.
type Engine struct {
	detectors []Detector
	sem       *httputil.Semaphore
	maxInput  int
}

// EngineOptions configures a detection engine.
type EngineOptions struct {
	EnabledCategories []Category // nil means all
	MaxParallelChecks int        // detector concurrency budget, min 1
	MaxInputLength    int        // runes; longer input is truncated before scanning
}

// NewEngine builds an engine with one detector per enabled category.
func NewEngine(opts EngineOptions) *Engine {
	enabled := opts.EnabledCategories
	if len(enabled) == 0 {
		enabled = AllCategories()
	}
	var detectors []Detector
	for _, cat := range AllCategories() {
		for _, e := range enabled {
			if cat == e {
				detectors = append(detectors, NewDetector(cat))
				break
			}
		}
	}

	parallel := opts.MaxParallelChecks
	if parallel < 1 {
		parallel = 1
	}
	return &Engine{
		detectors: detectors,
		sem:       httputil.NewSemaphore(parallel),
		maxInput:  opts.MaxInputLength,
	}
}

// Scan runs all detectors over text and merges findings in stable
// category order. Identical input always yields an identical result.
func (e *Engine) Scan(ctx context.Context, text string) *ScanResult {
	start := time.Now()

	raw := truncateRunes(text, e.maxInput)
	// NFKC folds fullwidth and compatibility characters back to their
	// canonical forms so lookalike text cannot slip past the patterns.
	normalized := norm.NFKC.String(raw)

	type slot struct {
		idx      int
		findings []Finding
	}
	results := make(chan slot, len(e.detectors))

	for i, d := range e.detectors {
		go func(idx int, det Detector) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[WARN] detector %s panicked: %v", det.Category(), r)
					results <- slot{idx: idx}
				}
			}()
			if err := e.sem.Acquire(ctx); err != nil {
				results <- slot{idx: idx}
				return
			}
			defer e.sem.Release()

			// The obfuscation detector needs the raw text: normalization
			// erases the very characters it looks for.
			input := normalized
			if det.Category() == CategoryObfuscation {
				input = raw
			}
			results <- slot{idx: idx, findings: det.Detect(input)}
		}(i, d)
	}

	merged := make([][]Finding, len(e.detectors))
	for range e.detectors {
		s := <-results
		merged[s.idx] = s.findings
	}

	res := &ScanResult{}
	seen := make(map[Category]bool)
	for _, findings := range merged {
		for _, f := range findings {
			res.Findings = append(res.Findings, f)
			if !seen[f.Category] {
				seen[f.Category] = true
				res.Categories = append(res.Categories, f.Category)
			}
		}
	}
	res.Flagged = len(res.Categories) > 0
	res.ElapsedMs = float64(time.Since(start)) / float64(time.Millisecond)
	return res
}

// truncateRunes caps s at max runes. max <= 0 means no cap.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
