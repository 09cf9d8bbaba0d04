package detect

import "time"

// Category identifies one class of threat the pipeline screens for.
// The set is closed: adding a category means adding a detector variant,
// not registering a string at runtime.
type Category string

const (
	CategoryJailbreak       Category = "jailbreak"
	CategoryPromptInjection Category = "prompt_injection"
	CategorySecrets         Category = "secrets"
	CategoryUnsafeAPI       Category = "unsafe_api"
	CategoryObfuscation     Category = "obfuscation"
	CategoryMalicious       Category = "malicious_instructions"
	CategoryIllegal         Category = "illegal_content"
	CategoryLicenseRisk     Category = "license_risk"
)

// AllCategories returns every known category in stable order.
// The order is the merge order for engine results, which keeps scans
// reproducible regardless of detector completion order.
func AllCategories() []Category {
	return []Category{
		CategoryJailbreak,
		CategoryPromptInjection,
		CategorySecrets,
		CategoryUnsafeAPI,
		CategoryObfuscation,
		CategoryMalicious,
		CategoryIllegal,
		CategoryLicenseRisk,
	}
}

// ValidCategory reports whether c names a known category.
func ValidCategory(c Category) bool {
	for _, k := range AllCategories() {
		if k == c {
			return true
		}
	}
	return false
}

// Source records which mechanism produced a finding.
type Source string

const (
	SourceRegex     Source = "regex"
	SourceSemantic  Source = "semantic"
	SourceHeuristic Source = "heuristic"
)

// Finding is a single detector's evidence that a category applies to a
// span of text. Immutable once produced.
type Finding struct {
	Category   Category `json:"category"`
	Pattern    string   `json:"pattern"`
	Match      string   `json:"match"`
	Confidence float64  `json:"confidence"`
	Source     Source   `json:"source"`
}

// ScanResult is the outcome of one detection pass over a unit of content.
// Cached entries are shared read-only; callers receive value copies with
// their own CacheHit and ElapsedMs.
type ScanResult struct {
	Fingerprint string     `json:"fingerprint"`
	Flagged     bool       `json:"flagged"`
	Categories  []Category `json:"categories,omitempty"`
	Findings    []Finding  `json:"findings,omitempty"`
	Actions     []string   `json:"actions,omitempty"`
	ElapsedMs   float64    `json:"elapsed_ms"`
	CacheHit    bool       `json:"cache_hit"`
}

// Clone returns a deep copy the caller may mutate freely.
func (r *ScanResult) Clone() *ScanResult {
	cp := *r
	cp.Categories = append([]Category(nil), r.Categories...)
	cp.Findings = append([]Finding(nil), r.Findings...)
	cp.Actions = append([]string(nil), r.Actions...)
	return &cp
}

// Elapsed reports the scan duration as a time.Duration.
func (r *ScanResult) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMs * float64(time.Millisecond))
}

// HasCategory reports whether cat was triggered by this scan.
func (r *ScanResult) HasCategory(cat Category) bool {
	for _, c := range r.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// HasAction reports whether the resolved action set contains name.
func (r *ScanResult) HasAction(name string) bool {
	for _, a := range r.Actions {
		if a == name {
			return true
		}
	}
	return false
}
