package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sentinelsec/sentinel/pkg/detect"
	"github.com/sentinelsec/sentinel/pkg/policy"
)

// policyFile is the YAML shape of an on-disk policy. Every field is
// optional; unset fields keep their env-derived values.
type policyFile struct {
	Categories        []string            `yaml:"categories"`
	Actions           map[string][]string `yaml:"actions"`
	MaxParallelChecks *int                `yaml:"max_parallel_checks"`
	MaxInputLength    *int                `yaml:"max_input_length"`
	CacheTTLSeconds   *int                `yaml:"cache_ttl_seconds"`
	CacheMaxSize      *int                `yaml:"cache_max_size"`

	Thresholds struct {
		SQLRisk      *float64 `yaml:"sql_risk"`
		Subprocess   *float64 `yaml:"subprocess"`
		EmbeddingSim *float64 `yaml:"embedding_sim"`
		MediumFloor  *float64 `yaml:"medium_floor"`
	} `yaml:"thresholds"`
}

// applyPolicyFile overlays the YAML policy at path onto c. Unknown
// category or action names are a hard error here, unlike env parsing:
// a policy file is deliberate operator input.
func (c *Config) applyPolicyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	if len(pf.Categories) > 0 {
		var cats []detect.Category
		for _, n := range pf.Categories {
			cat := detect.Category(n)
			if !detect.ValidCategory(cat) {
				return fmt.Errorf("unknown category %q", n)
			}
			cats = append(cats, cat)
		}
		c.EnabledCategories = cats
	}

	for name, actionNames := range pf.Actions {
		cat := detect.Category(name)
		if !detect.ValidCategory(cat) {
			return fmt.Errorf("unknown category %q in actions", name)
		}
		var actions []policy.Action
		for _, an := range actionNames {
			a := policy.Action(an)
			if !policy.ValidAction(a) {
				return fmt.Errorf("unknown action %q for category %q", an, name)
			}
			actions = append(actions, a)
		}
		c.Actions[cat] = actions
	}

	if pf.MaxParallelChecks != nil {
		c.MaxParallelChecks = *pf.MaxParallelChecks
	}
	if pf.MaxInputLength != nil {
		c.MaxInputLength = *pf.MaxInputLength
	}
	if pf.CacheTTLSeconds != nil {
		c.CacheTTL = time.Duration(*pf.CacheTTLSeconds) * time.Second
	}
	if pf.CacheMaxSize != nil {
		c.CacheMaxSize = *pf.CacheMaxSize
	}
	if pf.Thresholds.SQLRisk != nil {
		c.SQLRiskThreshold = *pf.Thresholds.SQLRisk
	}
	if pf.Thresholds.Subprocess != nil {
		c.SubprocessThreshold = *pf.Thresholds.Subprocess
	}
	if pf.Thresholds.EmbeddingSim != nil {
		c.EmbeddingSimThreshold = *pf.Thresholds.EmbeddingSim
	}
	if pf.Thresholds.MediumFloor != nil {
		c.MediumRiskFloor = *pf.Thresholds.MediumFloor
	}
	return nil
}
