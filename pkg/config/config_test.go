package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sentinelsec/sentinel/pkg/detect"
	"github.com/sentinelsec/sentinel/pkg/policy"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(cfg.EnabledCategories) != len(detect.AllCategories()) {
		t.Errorf("default must enable all categories, got %v", cfg.EnabledCategories)
	}
	if cfg.MaxParallelChecks != 4 || cfg.CacheTTL != time.Hour || cfg.MaxInputLength != 20000 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SENTINEL_MAX_PARALLEL_CHECKS", "8")
	t.Setenv("SENTINEL_CACHE_TTL_SECONDS", "120")
	t.Setenv("SENTINEL_CATEGORIES", "secrets, jailbreak, not_a_category")
	t.Setenv("SENTINEL_ACTIONS_OBFUSCATION", "block")

	cfg := NewDefaultConfig()
	if cfg.MaxParallelChecks != 8 {
		t.Errorf("MaxParallelChecks = %d", cfg.MaxParallelChecks)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	want := []detect.Category{detect.CategorySecrets, detect.CategoryJailbreak}
	if len(cfg.EnabledCategories) != len(want) {
		t.Errorf("EnabledCategories = %v, want %v", cfg.EnabledCategories, want)
	}
	actions := cfg.Actions[detect.CategoryObfuscation]
	if len(actions) != 1 || actions[0] != policy.ActionBlock {
		t.Errorf("obfuscation actions = %v", actions)
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SQLRiskThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("out-of-range threshold accepted")
	}

	cfg = NewDefaultConfig()
	cfg.CacheTTL = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero TTL accepted")
	}

	cfg = NewDefaultConfig()
	cfg.EnabledCategories = nil
	if err := cfg.Validate(); err == nil {
		t.Error("empty category set accepted")
	}
}

func TestPresetConfigs(t *testing.T) {
	strict := NewHighSecurityConfig()
	if err := strict.Validate(); err != nil {
		t.Errorf("high security preset invalid: %v", err)
	}
	if strict.SQLRiskThreshold >= NewDefaultConfig().SQLRiskThreshold {
		t.Error("high security preset should lower thresholds")
	}

	loose := NewHighUsabilityConfig()
	if err := loose.Validate(); err != nil {
		t.Errorf("high usability preset invalid: %v", err)
	}
	if loose.SQLRiskThreshold <= NewDefaultConfig().SQLRiskThreshold {
		t.Error("high usability preset should raise thresholds")
	}
}

func TestPolicyFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `
categories: [secrets, unsafe_api]
actions:
  unsafe_api: [block]
max_parallel_checks: 2
cache_ttl_seconds: 30
thresholds:
  sql_risk: 0.7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SENTINEL_POLICY_FILE", path)

	cfg, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.EnabledCategories) != 2 {
		t.Errorf("categories = %v", cfg.EnabledCategories)
	}
	if got := cfg.Actions[detect.CategoryUnsafeAPI]; len(got) != 1 || got[0] != policy.ActionBlock {
		t.Errorf("unsafe_api actions = %v", got)
	}
	if cfg.MaxParallelChecks != 2 || cfg.CacheTTL != 30*time.Second || cfg.SQLRiskThreshold != 0.7 {
		t.Errorf("overlay not applied: %+v", cfg)
	}
}

func TestPolicyFileRejectsUnknownNames(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown category", "categories: [made_up]"},
		{"unknown action", "actions:\n  secrets: [obliterate]"},
		{"bad yaml", ":\n:::"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "policy.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			t.Setenv("SENTINEL_POLICY_FILE", path)
			if _, err := New(); err == nil {
				t.Error("bad policy file accepted")
			}
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SENTINEL_TEST_STR", "value")
	t.Setenv("SENTINEL_TEST_INT", "42")
	t.Setenv("SENTINEL_TEST_FLOAT", "0.25")
	t.Setenv("SENTINEL_TEST_BOOL", "true")
	t.Setenv("SENTINEL_TEST_SLICE", "a, b , ,c")

	if got := GetEnv("SENTINEL_TEST_STR", "d"); got != "value" {
		t.Errorf("GetEnv = %q", got)
	}
	if got := GetEnv("SENTINEL_TEST_MISSING", "d"); got != "d" {
		t.Errorf("GetEnv default = %q", got)
	}
	if got := GetEnvInt("SENTINEL_TEST_INT", 0); got != 42 {
		t.Errorf("GetEnvInt = %d", got)
	}
	if got := GetEnvInt("SENTINEL_TEST_STR", 7); got != 7 {
		t.Errorf("GetEnvInt on garbage = %d, want default", got)
	}
	if got := GetEnvFloat("SENTINEL_TEST_FLOAT", 0); got != 0.25 {
		t.Errorf("GetEnvFloat = %v", got)
	}
	if !GetEnvBool("SENTINEL_TEST_BOOL", false) {
		t.Error("GetEnvBool = false")
	}
	got := GetEnvSlice("SENTINEL_TEST_SLICE", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("GetEnvSlice = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetEnvSlice[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
