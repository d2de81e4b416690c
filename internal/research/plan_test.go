// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/marketing-research/pkg/types"
)

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	content := `name: spring-launch
brief: Launch of a lightweight running shoe.
topics:
  - name: search_trends
    title: Search Trends
    goal: What people search for.
    min_queries: 3
  - name: video_trends
    goal: What creators cover.
    provider: video
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	plan, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, "spring-launch", plan.Name)
	require.Len(t, plan.Topics, 2)
	assert.Equal(t, 3, plan.Topics[0].MinQueries)
	assert.Equal(t, types.ProviderVideo, plan.Topics[1].Provider)
}

func TestLoadPlanErrors(t *testing.T) {
	_, err := LoadPlan(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading plan")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("topics: [unclosed"), 0o644))
	_, err = LoadPlan(path)
	assert.ErrorContains(t, err, "parsing plan")
}

func TestApplyDefaults(t *testing.T) {
	plan := types.Plan{Topics: []types.Topic{
		{Name: " a ", Goal: "g"},
		{Name: "b", Title: "B Title", Goal: "g", MinQueries: 1, MaxQueries: 3, Provider: types.ProviderVideo},
	}}

	t.Run("built-in bounds", func(t *testing.T) {
		got := ApplyDefaults(plan, types.PipelineConfig{})
		assert.Equal(t, types.Topic{Name: "a", Title: "a", Goal: "g", MinQueries: 2, MaxQueries: 7, Provider: types.ProviderWeb}, got.Topics[0])
		assert.Equal(t, plan.Topics[1], got.Topics[1])
	})

	t.Run("configured bounds", func(t *testing.T) {
		got := ApplyDefaults(plan, types.PipelineConfig{MinQueries: 4, MaxQueries: 5})
		assert.Equal(t, 4, got.Topics[0].MinQueries)
		assert.Equal(t, 5, got.Topics[0].MaxQueries)
	})

	t.Run("input untouched", func(t *testing.T) {
		ApplyDefaults(plan, types.PipelineConfig{})
		assert.Equal(t, " a ", plan.Topics[0].Name)
		assert.Empty(t, plan.Topics[0].Title)
	})
}

func TestValidatePlan(t *testing.T) {
	valid := func() types.Plan {
		return ApplyDefaults(threeTopicPlan(), types.PipelineConfig{})
	}

	tests := []struct {
		name    string
		mutate  func(*types.Plan)
		wantErr string
	}{
		{"valid", func(*types.Plan) {}, ""},
		{"no topics", func(p *types.Plan) { p.Topics = nil }, "no topics"},
		{"empty name", func(p *types.Plan) { p.Topics[0].Name = "" }, "name is required"},
		{"duplicate name", func(p *types.Plan) { p.Topics[1].Name = "search_trends" }, "duplicate name"},
		{"duplicate title", func(p *types.Plan) { p.Topics[1].Title = "search trends" }, "duplicate title"},
		{"reserved title", func(p *types.Plan) { p.Topics[2].Title = "Insights" }, "reserved"},
		{"references title", func(p *types.Plan) { p.Topics[1].Title = "Sources" }, "reserved"},
		{"bibliography title", func(p *types.Plan) { p.Topics[0].Title = " Bibliography " }, "reserved"},
		{"empty goal", func(p *types.Plan) { p.Topics[0].Goal = "  " }, "goal is required"},
		{"inverted bounds", func(p *types.Plan) { p.Topics[0].MinQueries = 9 }, "exceeds max_queries"},
		{"unknown provider", func(p *types.Plan) { p.Topics[0].Provider = "radio" }, "unknown provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := valid()
			tt.mutate(&plan)
			err := ValidatePlan(plan)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestExpectedSections(t *testing.T) {
	assert.Equal(t,
		[]string{"Search Trends", "Video Trends", "Campaign Guide", "Insights"},
		ExpectedSections(threeTopicPlan()))
}
