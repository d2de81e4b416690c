// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/marketing-research/pkg/types"
)

// Query bound defaults.
const (
	DefaultMinQueries = 2
	DefaultMaxQueries = 7
	DefaultFollowUps  = 7
)

// InsightsSection is the heading of the cross-topic section every report
// ends with.
const InsightsSection = "Insights"

// reservedTitles cannot be topic titles: the insights section, and headings
// the composer treats as a references block.
var reservedTitles = map[string]bool{
	"insights":     true,
	"references":   true,
	"sources":      true,
	"bibliography": true,
	"works cited":  true,
	"citations":    true,
}

// LoadPlan reads a research plan from a YAML file.
func LoadPlan(path string) (types.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Plan{}, fmt.Errorf("reading plan: %w", err)
	}
	var plan types.Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return types.Plan{}, fmt.Errorf("parsing plan %s: %w", path, err)
	}
	return plan, nil
}

// ApplyDefaults fills unset topic fields. Query bounds fall back to cfg and
// then to 2..7; the title falls back to the name.
func ApplyDefaults(plan types.Plan, cfg types.PipelineConfig) types.Plan {
	minQ, maxQ := cfg.MinQueries, cfg.MaxQueries
	if minQ <= 0 {
		minQ = DefaultMinQueries
	}
	if maxQ <= 0 {
		maxQ = DefaultMaxQueries
	}

	out := plan
	out.Topics = make([]types.Topic, len(plan.Topics))
	for i, t := range plan.Topics {
		t.Name = strings.TrimSpace(t.Name)
		if t.Title == "" {
			t.Title = t.Name
		}
		if t.MinQueries <= 0 {
			t.MinQueries = minQ
		}
		if t.MaxQueries <= 0 {
			t.MaxQueries = maxQ
		}
		if t.Provider == "" {
			t.Provider = types.ProviderWeb
		}
		out.Topics[i] = t
	}
	return out
}

// ValidatePlan checks that a plan can drive a pass.
func ValidatePlan(plan types.Plan) error {
	if len(plan.Topics) == 0 {
		return fmt.Errorf("plan has no topics")
	}
	names := make(map[string]bool)
	titles := make(map[string]bool)
	for i, t := range plan.Topics {
		if t.Name == "" {
			return fmt.Errorf("topic %d: name is required", i)
		}
		if names[t.Name] {
			return fmt.Errorf("topic %q: duplicate name", t.Name)
		}
		names[t.Name] = true

		title := strings.ToLower(strings.TrimSpace(t.Title))
		if reservedTitles[title] {
			return fmt.Errorf("topic %q: title %q is reserved", t.Name, t.Title)
		}
		if titles[title] {
			return fmt.Errorf("topic %q: duplicate title %q", t.Name, t.Title)
		}
		titles[title] = true

		if strings.TrimSpace(t.Goal) == "" {
			return fmt.Errorf("topic %q: goal is required", t.Name)
		}
		if t.MinQueries > t.MaxQueries {
			return fmt.Errorf("topic %q: min_queries %d exceeds max_queries %d", t.Name, t.MinQueries, t.MaxQueries)
		}
		switch t.Provider {
		case types.ProviderWeb, types.ProviderVideo:
		default:
			return fmt.Errorf("topic %q: unknown provider %q", t.Name, t.Provider)
		}
	}
	return nil
}

// ExpectedSections returns the level-two headings a report for plan must
// contain, in order.
func ExpectedSections(plan types.Plan) []string {
	out := make([]string, 0, len(plan.Topics)+1)
	for _, t := range plan.Topics {
		out = append(out, t.Title)
	}
	return append(out, InsightsSection)
}
