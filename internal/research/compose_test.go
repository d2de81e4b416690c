// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/marketing-research/internal/generate"
	"github.com/pdiddy/marketing-research/pkg/types"
)

func TestSections(t *testing.T) {
	text := "# Title\n\n## Search Trends\n\nbody\n\n### Sub\n\n##  Insights ##\n\nx"
	assert.Equal(t, []string{"Search Trends", "Insights"}, Sections(text))
	assert.Nil(t, Sections("no headings here"))
}

func TestStripReferences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"none", "## A\n\nbody", "## A\n\nbody"},
		{"heading", "## A\n\nbody\n\n## References\n\n1. x", "## A\n\nbody"},
		{"sources heading", "## A\n\nbody\n\n### Sources:\n- x", "## A\n\nbody"},
		{"bold label", "## A\n\nbody\n\n**Bibliography**\n- x", "## A\n\nbody"},
		{"works cited", "## A\n\nbody\n\n## Works Cited\n", "## A\n\nbody"},
		{"mention in prose", "## A\n\nThe references section of the guide says x.", "## A\n\nThe references section of the guide says x."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripReferences(tt.in))
		})
	}
}

func TestStripReferencesKeepsExpectedSections(t *testing.T) {
	text := "## Trends\n\nA.\n\n## Sources\n\nB.\n\n## Insights\n\nC.\n\n## Sources\n\n- src-1"

	assert.Equal(t, "## Trends\n\nA.\n\n## Sources\n\nB.\n\n## Insights\n\nC.",
		StripReferences(text, "Trends", "Sources", "Insights"))
	assert.Equal(t, "## Trends\n\nA.", StripReferences(text))

	before := "## Trends\n\nA.\n\n## References\n\n- x\n\n## Insights\n\nC."
	assert.Equal(t, before, StripReferences(before, "Trends", "Insights"),
		"only a references block after the last section is cut")
}

func TestComposerKeepsTopicNamedLikeReferences(t *testing.T) {
	plan := types.Plan{Topics: []types.Topic{
		{Name: "trends", Title: "Trends", Goal: "g"},
		{Name: "sources", Title: "Sources", Goal: "g"},
	}}
	gen := generate.Func(func(context.Context, generate.Request) (generate.Response, error) {
		return generate.Response{Text: "## Trends\n\nA <cite source=\"src-1\"/>.\n\n## Sources\n\nB.\n\n## Insights\n\nC."}, nil
	})

	report, err := (&Composer{Generator: gen}).Compose(context.Background(), plan, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Trends", "Sources", "Insights"}, report.Sections)
	assert.Empty(t, report.MissingSections)
}

func TestUnfence(t *testing.T) {
	assert.Equal(t, "## A\n\nbody", unfence("```markdown\n## A\n\nbody\n```"))
	assert.Equal(t, "## A", unfence("  ## A  "))
	assert.Equal(t, "```", unfence("```"))
}

func TestComposerCompose(t *testing.T) {
	plan := ApplyDefaults(threeTopicPlan(), types.PipelineConfig{})
	srcs := []types.Source{{ShortID: "src-1", Title: "Trends Report", URL: "https://trends.example/shoes"}}

	var gotReq generate.Request
	gen := generate.Func(func(_ context.Context, req generate.Request) (generate.Response, error) {
		gotReq = req
		return generate.Response{Text: "```markdown\n## Search Trends\n\nUp 30% <cite source=\"src-1\"/>.\n\n## Insights\n\nAct <cite source=\"src-7\"/>.\n\n## Sources\n\n- src-1\n```"}, nil
	})
	core, logs := observer.New(zap.WarnLevel)
	c := &Composer{Generator: gen, Logger: zap.New(core)}

	report, err := c.Compose(context.Background(), plan, []ComposeInput{{Title: "Search Trends", Text: "### q\n\nUp 30%."}}, srcs)
	require.NoError(t, err)

	assert.Equal(t, composerSystem, gotReq.System)
	assert.Nil(t, gotReq.Schema)
	assert.Contains(t, gotReq.Prompt, "## Campaign Guide\n## Insights")
	assert.Contains(t, gotReq.Prompt, "=== Search Trends ===\n### q")
	assert.Contains(t, gotReq.Prompt, "src-1 | Trends Report | https://trends.example/shoes")

	assert.NotContains(t, report.Text, "## Sources")
	assert.Equal(t, []string{"src-1", "src-7"}, report.CitedIDs)
	assert.Equal(t, []string{"Search Trends", "Insights"}, report.Sections)
	assert.Equal(t, []string{"Video Trends", "Campaign Guide"}, report.MissingSections)
	assert.Equal(t, 1, logs.FilterMessage("report is missing sections").Len())
}
