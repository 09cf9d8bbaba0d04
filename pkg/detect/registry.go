// Package detect holds the Sentinel detector set: a compile-once pattern
// registry, one pure detector per threat category, and the concurrent
// detection engine that merges their findings into a verdict.
//
// Design principles:
// - COMPILE ONCE: all regex patterns are compiled at first use, never per-scan
// - PURE DETECTORS: a detector maps text to findings and has no side effects
// - CLOSED SET: categories are enumerated; extending means adding a detector
package detect

import (
	"regexp"
	"sync"
)

// Pattern holds a compiled regex with detection metadata.
type Pattern struct {
	Name        string         // stable identifier for logging and findings
	Regex       *regexp.Regexp // compiled regex, never nil after init
	Category    Category       // threat category this pattern evidences
	Confidence  float64        // 0-1 confidence a match implies the category
	Description string         // what this pattern detects
}

// Registry holds all compiled patterns, keyed by category.
type Registry struct {
	byCategory map[Category][]*Pattern
	total      int
}

var (
	globalRegistry *Registry
	initOnce       sync.Once
)

// Get returns the global pattern registry, building it on first call.
func Get() *Registry {
	initOnce.Do(func() {
		globalRegistry = newRegistry()
	})
	return globalRegistry
}

func newRegistry() *Registry {
	r := &Registry{byCategory: make(map[Category][]*Pattern)}

	r.registerJailbreakPatterns()
	r.registerInjectionPatterns()
	r.registerSecretPatterns()
	r.registerUnsafeAPIPatterns()
	r.registerObfuscationPatterns()
	r.registerMaliciousPatterns()
	r.registerIllegalPatterns()
	r.registerLicensePatterns()

	return r
}

func (r *Registry) register(name, pattern string, cat Category, confidence float64, description string) {
	p := &Pattern{
		Name:        name,
		Regex:       regexp.MustCompile(pattern),
		Category:    cat,
		Confidence:  confidence,
		Description: description,
	}
	r.byCategory[cat] = append(r.byCategory[cat], p)
	r.total++
}

// ByCategory returns all patterns for a category. Never nil.
func (r *Registry) ByCategory(cat Category) []*Pattern {
	if ps, ok := r.byCategory[cat]; ok {
		return ps
	}
	return []*Pattern{}
}

// MatchAll returns every pattern in cat that matches text.
func (r *Registry) MatchAll(text string, cat Category) []*Pattern {
	var matches []*Pattern
	for _, p := range r.byCategory[cat] {
		if p.Regex.MatchString(text) {
			matches = append(matches, p)
		}
	}
	return matches
}

// TotalPatterns returns the count of registered patterns across categories.
func (r *Registry) TotalPatterns() int {
	return r.total
}

// CategoryCount returns the number of patterns registered for cat.
func (r *Registry) CategoryCount(cat Category) int {
	return len(r.byCategory[cat])
}
