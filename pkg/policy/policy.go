// Package policy maps triggered threat categories to enforcement
// actions. Resolution is a pure function of the category set and the
// action table, so the same scan always enforces the same way.
package policy

import (
	"sort"

	"github.com/sentinelsec/sentinel/pkg/detect"
)

// Action is one enforcement step attached to a scan result.
type Action string

const (
	ActionBlock         Action = "block"
	ActionWarn          Action = "warn"
	ActionRequireReview Action = "require_review"
	ActionRedactOutput  Action = "redact_on_output"
)

// ValidAction reports whether a names a known action.
func ValidAction(a Action) bool {
	switch a {
	case ActionBlock, ActionWarn, ActionRequireReview, ActionRedactOutput:
		return true
	}
	return false
}

// Table maps each category to the actions it triggers.
type Table map[detect.Category][]Action

// DefaultTable returns the stock category-to-action mapping.
// Secrets both block and redact: blocking stops the immediate leak,
// redaction covers surfaces that render the result anyway.
func DefaultTable() Table {
	return Table{
		detect.CategoryJailbreak:       {ActionBlock},
		detect.CategoryPromptInjection: {ActionBlock},
		detect.CategorySecrets:         {ActionRedactOutput, ActionBlock},
		detect.CategoryUnsafeAPI:       {ActionWarn, ActionRequireReview},
		detect.CategoryObfuscation:     {ActionWarn},
		detect.CategoryMalicious:       {ActionBlock},
		detect.CategoryIllegal:         {ActionBlock},
		detect.CategoryLicenseRisk:     {ActionWarn},
	}
}

// Resolve returns the union of actions for the triggered categories,
// deduplicated and sorted with block first. An empty category set
// resolves to no actions. Conflicts resolve toward blocking: once any
// triggered category demands block, the result contains block no matter
// what the others say.
func Resolve(categories []detect.Category, table Table) []Action {
	if len(categories) == 0 {
		return nil
	}
	seen := make(map[Action]bool)
	var actions []Action
	for _, cat := range categories {
		for _, a := range table[cat] {
			if !seen[a] {
				seen[a] = true
				actions = append(actions, a)
			}
		}
	}
	sort.Slice(actions, func(i, j int) bool {
		if (actions[i] == ActionBlock) != (actions[j] == ActionBlock) {
			return actions[i] == ActionBlock
		}
		return actions[i] < actions[j]
	})
	return actions
}

// Blocks reports whether the resolved action set demands a block.
func Blocks(actions []Action) bool {
	for _, a := range actions {
		if a == ActionBlock {
			return true
		}
	}
	return false
}

// Strings converts actions to their wire form.
func Strings(actions []Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = string(a)
	}
	return out
}
