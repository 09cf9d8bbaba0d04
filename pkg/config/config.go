// Package config holds the runtime policy for the Sentinel pipeline.
// Configuration is resolved once at startup from environment variables
// (optionally overlaid by a YAML policy file) and treated as immutable
// afterwards: no component mutates a Config after construction.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sentinelsec/sentinel/pkg/detect"
	"github.com/sentinelsec/sentinel/pkg/policy"
)

// Config holds every tunable of the pipeline. All settings can be set
// via SENTINEL_-prefixed environment variables or programmatically.
type Config struct {
	// === Detection ===
	EnabledCategories []detect.Category // categories the engine runs detectors for
	Actions           policy.Table      // category -> enforcement actions
	MaxParallelChecks int               // detector concurrency budget (default: 4)
	MaxInputLength    int               // runes scanned per input; longer is truncated (default: 20000)

	// === Result cache ===
	CacheTTL      time.Duration // entry lifetime (default: 1h)
	CacheMaxSize  int           // in-process entry cap, oldest evicted (default: 1000)
	RedisAddr     string        // optional shared cache store, empty disables
	RedisPassword string

	// === Semantic adapter (external classifier) ===
	SemanticURL     string        // empty disables the L2a stage
	SemanticAPIKey  string        // empty disables the L2a stage
	SemanticTimeout time.Duration // per-call budget (default: 5s)

	// === Backdoor analyzer ===
	SQLRiskThreshold       float64 // High at or above (default: 0.8)
	SubprocessThreshold    float64 // High at or above (default: 0.8)
	EmbeddingSimThreshold  float64 // High at or above (default: 0.72)
	MediumRiskFloor        float64 // Medium band lower bound for SQL/embedding (default: 0.5)
	EmbeddingURL           string  // HTTP embedder endpoint, empty disables the similarity signal
	EmbeddingModel         string  // model name sent to the embedder
	EmbeddingTimeout       time.Duration

	// === Risk summarizer ===
	SummaryLLMURL     string        // OpenAI-compatible chat endpoint, empty forces fallback
	SummaryLLMKey     string
	SummaryLLMModel   string
	SummaryLLMTimeout time.Duration // per-call budget (default: 10s)

	// === Telemetry ===
	AuditLogPath string // JSONL stage-event log, empty disables
	WebhookURL   string // POST per stage event, empty disables
	PostgresDSN  string // persist stage events, empty disables
}

// New resolves configuration from the environment. If SENTINEL_POLICY_FILE
// names a YAML policy file, its values overlay the env-derived defaults.
func New() (*Config, error) {
	cfg := NewDefaultConfig()
	if path := os.Getenv("SENTINEL_POLICY_FILE"); path != "" {
		if err := cfg.applyPolicyFile(path); err != nil {
			return nil, fmt.Errorf("policy file %s: %w", path, err)
		}
	}
	return cfg, nil
}

// NewDefaultConfig creates a Config from environment variables with
// sensible defaults for everything unset.
func NewDefaultConfig() *Config {
	return &Config{
		EnabledCategories: parseCategories(GetEnvSlice("SENTINEL_CATEGORIES", nil)),
		Actions:           parseActionTable(),
		MaxParallelChecks: clampInt(GetEnvInt("SENTINEL_MAX_PARALLEL_CHECKS", 4), 1, 64),
		MaxInputLength:    clampInt(GetEnvInt("SENTINEL_MAX_INPUT_LENGTH", 20000), 100, 1_000_000),

		CacheTTL:      time.Duration(GetEnvInt("SENTINEL_CACHE_TTL_SECONDS", 3600)) * time.Second,
		CacheMaxSize:  clampInt(GetEnvInt("SENTINEL_CACHE_MAX_SIZE", 1000), 1, 100_000),
		RedisAddr:     GetEnv("SENTINEL_REDIS_ADDR", ""),
		RedisPassword: GetEnv("SENTINEL_REDIS_PASSWORD", ""),

		SemanticURL:     GetEnv("SENTINEL_SEMANTIC_URL", ""),
		SemanticAPIKey:  GetEnv("SENTINEL_SEMANTIC_API_KEY", ""),
		SemanticTimeout: time.Duration(GetEnvInt("SENTINEL_SEMANTIC_TIMEOUT_MS", 5000)) * time.Millisecond,

		SQLRiskThreshold:      GetEnvFloat("SENTINEL_SQL_RISK_THRESHOLD", 0.8),
		SubprocessThreshold:   GetEnvFloat("SENTINEL_SUBPROCESS_THRESHOLD", 0.8),
		EmbeddingSimThreshold: GetEnvFloat("SENTINEL_EMBEDDING_SIM_THRESHOLD", 0.72),
		MediumRiskFloor:       GetEnvFloat("SENTINEL_MEDIUM_RISK_FLOOR", 0.5),
		EmbeddingURL:          GetEnv("SENTINEL_EMBEDDING_URL", ""),
		EmbeddingModel:        GetEnv("SENTINEL_EMBEDDING_MODEL", "nomic-embed-text"),
		EmbeddingTimeout:      time.Duration(GetEnvInt("SENTINEL_EMBEDDING_TIMEOUT_MS", 5000)) * time.Millisecond,

		SummaryLLMURL:     GetEnv("SENTINEL_SUMMARY_LLM_URL", ""),
		SummaryLLMKey:     GetEnv("SENTINEL_SUMMARY_LLM_KEY", ""),
		SummaryLLMModel:   GetEnv("SENTINEL_SUMMARY_LLM_MODEL", "gpt-4o-mini"),
		SummaryLLMTimeout: time.Duration(GetEnvInt("SENTINEL_SUMMARY_TIMEOUT_MS", 10000)) * time.Millisecond,

		AuditLogPath: GetEnv("SENTINEL_AUDIT_LOG", ""),
		WebhookURL:   GetEnv("SENTINEL_WEBHOOK_URL", ""),
		PostgresDSN:  GetEnv("SENTINEL_POSTGRES_DSN", ""),
	}
}

// NewHighSecurityConfig lowers risk thresholds and widens actions.
// More false positives, fewer misses.
func NewHighSecurityConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.SQLRiskThreshold = 0.6
	cfg.SubprocessThreshold = 0.6
	cfg.EmbeddingSimThreshold = 0.6
	cfg.MediumRiskFloor = 0.35
	cfg.Actions[detect.CategoryObfuscation] = []policy.Action{policy.ActionBlock}
	cfg.Actions[detect.CategoryUnsafeAPI] = []policy.Action{policy.ActionBlock}
	return cfg
}

// NewHighUsabilityConfig raises thresholds to minimize false positives.
func NewHighUsabilityConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.SQLRiskThreshold = 0.9
	cfg.SubprocessThreshold = 0.9
	cfg.EmbeddingSimThreshold = 0.85
	cfg.MediumRiskFloor = 0.65
	cfg.Actions[detect.CategoryLicenseRisk] = nil
	return cfg
}

// parseCategories maps env names onto the closed category set, dropping
// unknown names with a warning. Empty input enables everything.
func parseCategories(names []string) []detect.Category {
	if len(names) == 0 {
		return detect.AllCategories()
	}
	var cats []detect.Category
	for _, n := range names {
		c := detect.Category(strings.ToLower(strings.TrimSpace(n)))
		if detect.ValidCategory(c) {
			cats = append(cats, c)
		} else {
			log.Printf("[WARN] unknown category %q in SENTINEL_CATEGORIES, skipping", n)
		}
	}
	if len(cats) == 0 {
		return detect.AllCategories()
	}
	return cats
}

// parseActionTable starts from the stock table and applies any
// SENTINEL_ACTIONS_<CATEGORY> overrides (comma-separated action names).
func parseActionTable() policy.Table {
	table := policy.DefaultTable()
	for _, cat := range detect.AllCategories() {
		key := "SENTINEL_ACTIONS_" + strings.ToUpper(string(cat))
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		var actions []policy.Action
		for _, part := range strings.Split(v, ",") {
			a := policy.Action(strings.ToLower(strings.TrimSpace(part)))
			if policy.ValidAction(a) {
				actions = append(actions, a)
			} else {
				log.Printf("[WARN] unknown action %q in %s, skipping", part, key)
			}
		}
		table[cat] = actions
	}
	return table
}

// clampInt ensures a value is within bounds.
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

// Validate checks internal consistency. The pipeline must never start
// with a configuration it cannot honor.
func (c *Config) Validate() error {
	var problems []string

	if len(c.EnabledCategories) == 0 {
		problems = append(problems, "no categories enabled")
	}
	for _, cat := range c.EnabledCategories {
		if !detect.ValidCategory(cat) {
			problems = append(problems, fmt.Sprintf("unknown category %q", cat))
		}
	}
	for cat, actions := range c.Actions {
		if !detect.ValidCategory(cat) {
			problems = append(problems, fmt.Sprintf("action table references unknown category %q", cat))
		}
		for _, a := range actions {
			if !policy.ValidAction(a) {
				problems = append(problems, fmt.Sprintf("unknown action %q for category %q", a, cat))
			}
		}
	}
	if c.MaxParallelChecks < 1 {
		problems = append(problems, "MaxParallelChecks must be >= 1")
	}
	if c.MaxInputLength < 1 {
		problems = append(problems, "MaxInputLength must be >= 1")
	}
	if c.CacheTTL <= 0 {
		problems = append(problems, "CacheTTL must be positive")
	}
	for name, v := range map[string]float64{
		"SQLRiskThreshold":      c.SQLRiskThreshold,
		"SubprocessThreshold":   c.SubprocessThreshold,
		"EmbeddingSimThreshold": c.EmbeddingSimThreshold,
		"MediumRiskFloor":       c.MediumRiskFloor,
	} {
		if v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("%s must be in [0,1], got %v", name, v))
		}
	}
	if c.SemanticURL != "" && c.SemanticAPIKey == "" {
		log.Printf("[WARN] SENTINEL_SEMANTIC_URL set without SENTINEL_SEMANTIC_API_KEY, semantic stage stays disabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MustValidate calls Validate and fatally exits on failure. Call at
// startup before serving traffic.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}
