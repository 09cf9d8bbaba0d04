// Package backdoor screens code artifacts for planted destructive
// behavior: dangerous SQL reaching execute sinks, hostile process
// spawning, and similarity to known-malicious snippets. The three
// signals are independent and share no mutable state.
package backdoor

import (
	"context"
	"log"
)

// RiskLabel grades a code artifact.
type RiskLabel string

const (
	RiskLow    RiskLabel = "Low"
	RiskMedium RiskLabel = "Medium"
	RiskHigh   RiskLabel = "High"
)

// fusion weights per signal; the fused score is their weighted mean.
const (
	weightSQL        = 1.0
	weightSubprocess = 0.9
	weightEmbedding  = 0.8
	fusedMediumBand  = 0.45
)

// Verdict is the analyzer's per-artifact result.
type Verdict struct {
	SQLRisk        float64   `json:"sql_risk"`
	SubprocessRisk float64   `json:"subprocess_risk"`
	EmbeddingSim   *float64  `json:"embedding_sim,omitempty"` // nil when no embedding backend
	FusedScore     float64   `json:"fused_score"`
	Label          RiskLabel `json:"label"`

	SQLFindings        []SQLFinding        `json:"sql_findings,omitempty"`
	SubprocessFindings []SubprocessFinding `json:"subprocess_findings,omitempty"`
}

// Thresholds are the analyzer's decision boundaries.
type Thresholds struct {
	SQLRisk      float64 // High at or above
	Subprocess   float64 // High at or above
	EmbeddingSim float64 // High at or above (raw cosine similarity)
	MediumFloor  float64 // Medium band lower bound per signal
}

// Analyzer scores code artifacts. Safe for concurrent use; the optional
// embedding index is read-only after construction.
type Analyzer struct {
	thresholds Thresholds
	index      *EmbeddingIndex // nil when embedding backend not configured
}

// New creates an Analyzer. index may be nil; the similarity signal is
// then skipped and the other signals are unaffected.
func New(thresholds Thresholds, index *EmbeddingIndex) *Analyzer {
	return &Analyzer{thresholds: thresholds, index: index}
}

// EmbeddingReady reports whether the similarity signal is available.
func (a *Analyzer) EmbeddingReady() bool { return a.index != nil }

// Analyze scores code and grades it. It never fails: a broken embedding
// backend degrades to the two static signals.
func (a *Analyzer) Analyze(ctx context.Context, code string) Verdict {
	v := Verdict{}
	v.SQLRisk, v.SQLFindings = analyzeSQL(code)
	v.SubprocessRisk, v.SubprocessFindings = analyzeSubprocess(code)

	var embedScore float64
	if a.index != nil {
		sim, err := a.index.BestSimilarity(ctx, code)
		if err != nil {
			log.Printf("[WARN] backdoor: embedding similarity unavailable: %v", err)
		} else {
			v.EmbeddingSim = &sim
			embedScore = a.mapSimilarity(sim)
		}
	}

	// weighted mean over all three signals, absent embedding scored 0
	total := weightSQL*v.SQLRisk + weightSubprocess*v.SubprocessRisk + weightEmbedding*embedScore
	v.FusedScore = total / (weightSQL + weightSubprocess + weightEmbedding)

	v.Label = a.grade(v, embedScore)
	return v
}

// mapSimilarity converts a raw cosine similarity at or above the
// threshold into a risk score in [0.4, 0.9]. Below threshold it carries
// no risk weight.
func (a *Analyzer) mapSimilarity(sim float64) float64 {
	t := a.thresholds.EmbeddingSim
	if sim < t || t >= 1 {
		return 0
	}
	mapped := 0.4 + 0.5*(sim-t)/(1-t)
	if mapped > 0.9 {
		return 0.9
	}
	return mapped
}

func (a *Analyzer) grade(v Verdict, embedScore float64) RiskLabel {
	sim := 0.0
	if v.EmbeddingSim != nil {
		sim = *v.EmbeddingSim
	}
	switch {
	case v.SQLRisk >= a.thresholds.SQLRisk,
		v.SubprocessRisk >= a.thresholds.Subprocess,
		v.EmbeddingSim != nil && sim >= a.thresholds.EmbeddingSim:
		return RiskHigh
	case v.SQLRisk >= a.thresholds.MediumFloor,
		v.SubprocessRisk >= a.thresholds.MediumFloor,
		embedScore >= a.thresholds.MediumFloor,
		v.FusedScore >= fusedMediumBand:
		return RiskMedium
	default:
		return RiskLow
	}
}
