// Package pipeline wires the scan stages into one orchestrated pass:
// pattern detection first, then semantic classification for content the
// patterns cleared, structural analysis for code artifacts, and a final
// risk summary. Every run ends in a terminal Decision.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sentinelsec/sentinel/pkg/backdoor"
	"github.com/sentinelsec/sentinel/pkg/cache"
	"github.com/sentinelsec/sentinel/pkg/config"
	"github.com/sentinelsec/sentinel/pkg/detect"
	"github.com/sentinelsec/sentinel/pkg/extract"
	"github.com/sentinelsec/sentinel/pkg/policy"
	"github.com/sentinelsec/sentinel/pkg/semantic"
	"github.com/sentinelsec/sentinel/pkg/summarize"
	"github.com/sentinelsec/sentinel/pkg/telemetry"
)

// Stage names, in pipeline order.
const (
	StageL1Scan     = "l1_scan"
	StageL2Semantic = "l2a_semantic"
	StageL2Backdoor = "l2b_backdoor"
	StageL3Summary  = "l3_summary"
)

// Request is one unit of content to screen.
type Request struct {
	Text        string `json:"text"`
	ContentType string `json:"content_type,omitempty"` // "text" when empty
	Direction   string `json:"direction,omitempty"`    // "input" or "output", "input" when empty
}

// StageResult records one stage's outcome in the order it ran.
type StageResult struct {
	Stage   string `json:"stage"`
	Blocked bool   `json:"blocked"`
	Summary string `json:"summary"`
}

// Decision is the pipeline's terminal verdict for a request.
type Decision struct {
	ExecutionID   string             `json:"execution_id"`
	OverallAction string             `json:"overall_action"` // "allowed" or "blocked"
	BlockingStage string             `json:"blocking_stage,omitempty"`
	RiskLabel     backdoor.RiskLabel `json:"risk_label"`
	Stages        []StageResult      `json:"stages"`

	Scan     *detect.ScanResult `json:"scan,omitempty"`
	Backdoor *backdoor.Verdict  `json:"backdoor,omitempty"`
	Summary  *summarize.Summary `json:"summary,omitempty"`

	// RedactedText is the submitted text with credential material
	// masked, present when the resolved actions include redact_on_output.
	RedactedText string `json:"redacted_text,omitempty"`
}

// Blocked reports whether the decision denies the content.
func (d *Decision) Blocked() bool { return d.OverallAction == "blocked" }

// Orchestrator runs requests through the stages. Safe for concurrent
// callers; the result cache is the only shared mutable state.
type Orchestrator struct {
	cfg        *config.Config
	engine     *detect.Engine
	cache      *cache.ResultCache
	semantic   *semantic.Client // nil disables the semantic stage
	analyzer   *backdoor.Analyzer
	summarizer *summarize.Summarizer
	emitter    *telemetry.Emitter
}

// Options bundles the orchestrator's collaborators.
type Options struct {
	Config     *config.Config
	Engine     *detect.Engine
	Cache      *cache.ResultCache
	Semantic   *semantic.Client
	Analyzer   *backdoor.Analyzer
	Summarizer *summarize.Summarizer
	Emitter    *telemetry.Emitter
}

// New assembles an Orchestrator.
func New(opts Options) *Orchestrator {
	emitter := opts.Emitter
	if emitter == nil {
		emitter = telemetry.NewEmitter(telemetry.LogSink{})
	}
	return &Orchestrator{
		cfg:        opts.Config,
		engine:     opts.Engine,
		cache:      opts.Cache,
		semantic:   opts.Semantic,
		analyzer:   opts.Analyzer,
		summarizer: opts.Summarizer,
		emitter:    emitter,
	}
}

// Process runs req through the pipeline and returns its Decision.
// The error return covers only computation failures inside the cache;
// external collaborator failures degrade per stage and never surface.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*Decision, error) {
	d := &Decision{
		ExecutionID:   newExecutionID(),
		OverallAction: "allowed",
		RiskLabel:     backdoor.RiskLow,
	}
	direction := req.Direction
	if direction == "" {
		direction = "input"
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "text"
	}

	// L1: pattern scan over the extracted prose segments, cached by
	// content fingerprint.
	scan, err := o.scanL1(ctx, req.Text, contentType, direction)
	if err != nil {
		return nil, fmt.Errorf("l1 scan: %w", err)
	}
	d.Scan = scan
	l1Blocked := scan.HasAction(string(policy.ActionBlock))
	o.record(d, StageL1Scan, l1Blocked, l1Summary(scan))

	if l1Blocked {
		d.OverallAction = "blocked"
		d.BlockingStage = StageL1Scan
		d.RiskLabel = backdoor.RiskHigh
		o.finish(ctx, d, req.Text)
		return d, nil
	}
	if scan.Flagged {
		d.RiskLabel = backdoor.RiskMedium
	}

	// L2a: semantic classification, only for content the patterns
	// cleared and only when the adapter is configured. A flagged L1
	// already has its verdict; the adapter never adds latency there.
	if !scan.Flagged && o.semantic.Ready() {
		o.classifyL2a(ctx, d, req.Text, direction)
		if d.Blocked() {
			o.finish(ctx, d, req.Text)
			return d, nil
		}
	}

	// L2b: structural analysis for code artifacts.
	if extract.IsCode(contentType) && o.analyzer != nil {
		o.analyzeL2b(ctx, d, req.Text)
	}

	o.finish(ctx, d, req.Text)
	return d, nil
}

func (o *Orchestrator) scanL1(ctx context.Context, text, contentType, direction string) (*detect.ScanResult, error) {
	fingerprint := cache.Fingerprint(direction, contentType, text)
	res, hit, err := o.cache.GetOrCompute(ctx, fingerprint, func(ctx context.Context) (*detect.ScanResult, error) {
		segments := extract.Extract(text, contentType)
		scan := o.engine.Scan(ctx, strings.Join(segments, "\n"))
		scan.Fingerprint = fingerprint
		scan.Actions = policy.Strings(policy.Resolve(scan.Categories, o.cfg.Actions))
		return scan, nil
	})
	if err != nil {
		return nil, err
	}
	res.CacheHit = hit
	return res, nil
}

func (o *Orchestrator) classifyL2a(ctx context.Context, d *Decision, text, direction string) {
	pol := semantic.Policy{
		Level:     "standard",
		Direction: direction,
	}
	for _, c := range o.cfg.EnabledCategories {
		pol.Categories = append(pol.Categories, string(c))
	}

	out := o.semantic.Classify(ctx, text, pol)
	if !out.Evaluated {
		o.record(d, StageL2Semantic, false, "adapter unavailable, proceeding on pattern results")
		return
	}
	if !out.Flagged {
		o.record(d, StageL2Semantic, false, "clean")
		return
	}

	d.Scan.Findings = append(d.Scan.Findings, out.Findings...)
	for _, c := range out.Categories {
		if !d.Scan.HasCategory(c) {
			d.Scan.Categories = append(d.Scan.Categories, c)
		}
	}
	d.Scan.Flagged = true
	d.Scan.Actions = policy.Strings(policy.Resolve(d.Scan.Categories, o.cfg.Actions))

	blocked := d.Scan.HasAction(string(policy.ActionBlock))
	summary := fmt.Sprintf("flagged (%.2f): %s", out.Confidence, out.Reason)
	o.record(d, StageL2Semantic, blocked, summary)

	if blocked {
		d.OverallAction = "blocked"
		d.BlockingStage = StageL2Semantic
		d.RiskLabel = backdoor.RiskHigh
	} else if d.RiskLabel == backdoor.RiskLow {
		d.RiskLabel = backdoor.RiskMedium
	}
}

func (o *Orchestrator) analyzeL2b(ctx context.Context, d *Decision, code string) {
	verdict := o.analyzer.Analyze(ctx, code)
	d.Backdoor = &verdict

	summary := fmt.Sprintf("label=%s sql=%.2f subprocess=%.2f fused=%.2f",
		verdict.Label, verdict.SQLRisk, verdict.SubprocessRisk, verdict.FusedScore)

	switch verdict.Label {
	case backdoor.RiskHigh:
		o.record(d, StageL2Backdoor, true, summary)
		d.OverallAction = "blocked"
		d.BlockingStage = StageL2Backdoor
		d.RiskLabel = backdoor.RiskHigh
	case backdoor.RiskMedium:
		o.record(d, StageL2Backdoor, false, summary)
		if d.RiskLabel == backdoor.RiskLow {
			d.RiskLabel = backdoor.RiskMedium
		}
	default:
		o.record(d, StageL2Backdoor, false, summary)
	}
}

// finish closes out a run: redaction for the redact_on_output action,
// then the L3 summary. Every Process path ends here.
func (o *Orchestrator) finish(ctx context.Context, d *Decision, text string) {
	if d.Scan != nil && d.Scan.HasAction(string(policy.ActionRedactOutput)) {
		d.RedactedText = policy.Redact(text)
	}
	o.summarizeL3(ctx, d)
}

func (o *Orchestrator) summarizeL3(ctx context.Context, d *Decision) {
	sum := o.summarizer.Summarize(ctx, summarize.Input{
		Scan:     d.Scan,
		Backdoor: d.Backdoor,
		Blocked:  d.Blocked(),
	})
	// The summary may raise the risk label but never lower it below
	// what the earlier stages established.
	sum.Label = summarize.MaxLabel(sum.Label, d.RiskLabel)
	d.Summary = &sum
	d.RiskLabel = sum.Label
	o.record(d, StageL3Summary, false, fmt.Sprintf("%s: %s", sum.Label, sum.Rationale))
}

func (o *Orchestrator) record(d *Decision, stage string, blocked bool, summary string) {
	d.Stages = append(d.Stages, StageResult{Stage: stage, Blocked: blocked, Summary: summary})
	o.emitter.Emit(telemetry.Event{
		ExecutionID: d.ExecutionID,
		Stage:       stage,
		Summary:     summary,
	})
}

func l1Summary(scan *detect.ScanResult) string {
	if !scan.Flagged {
		if scan.CacheHit {
			return "clean (cached)"
		}
		return "clean"
	}
	names := make([]string, len(scan.Categories))
	for i, c := range scan.Categories {
		names[i] = string(c)
	}
	s := "flagged: " + strings.Join(names, ", ")
	if scan.CacheHit {
		s += " (cached)"
	}
	return s
}

func newExecutionID() string {
	return "exec-" + uuid.NewString()[:8]
}
