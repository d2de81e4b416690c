// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/marketing-research/internal/citation"
	"github.com/pdiddy/marketing-research/internal/generate"
	"github.com/pdiddy/marketing-research/pkg/types"
)

var (
	// sectionRe matches a level-two markdown heading.
	sectionRe = regexp.MustCompile(`(?m)^##[ \t]+(.+?)[ \t#]*$`)

	// referencesRe matches the heading of a trailing bibliography block.
	referencesRe = regexp.MustCompile(`(?mi)^(?:#{1,6}[ \t]*|\*\*)(?:references|sources|bibliography|works cited|citations)(?:\*\*)?[ \t]*:?[ \t]*(?:\*\*)?[ \t]*$`)
)

// ComposeInput is one named block of findings handed to the composer.
type ComposeInput struct {
	Title string
	Text  string
}

// Composer writes the cited report from the pass's findings.
type Composer struct {
	Generator generate.Generator
	Logger    *zap.Logger
}

// Compose asks the generator for a report with one section per topic plus
// an insights section, citing srcs inline. Any references section the
// model adds is removed. Missing sections are reported, not fatal.
func (c *Composer) Compose(ctx context.Context, plan types.Plan, inputs []ComposeInput, srcs []types.Source) (types.CitedReport, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	expected := ExpectedSections(plan)
	prompt, err := render(composerTmpl, composerData{
		Brief:    plan.Brief,
		Sections: expected,
		Inputs:   inputs,
		Sources:  srcs,
	})
	if err != nil {
		return types.CitedReport{}, fmt.Errorf("rendering composer prompt: %w", err)
	}

	resp, err := c.Generator.Generate(ctx, generate.Request{System: composerSystem, Prompt: prompt})
	if err != nil {
		return types.CitedReport{}, fmt.Errorf("composing report: %w", err)
	}

	text := StripReferences(unfence(resp.Text), expected...)
	if text == "" {
		return types.CitedReport{}, fmt.Errorf("composer returned an empty report")
	}

	report := types.CitedReport{
		Text:     text,
		CitedIDs: citation.IDs(text),
		Sections: Sections(text),
	}
	report.MissingSections = missing(expected, report.Sections)
	if len(report.MissingSections) > 0 {
		logger.Warn("report is missing sections", zap.Strings("sections", report.MissingSections))
	}
	return report, nil
}

// Sections returns the level-two headings of text in order.
func Sections(text string) []string {
	var out []string
	for _, m := range sectionRe.FindAllStringSubmatch(text, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// StripReferences cuts text at a references, sources or bibliography
// heading. Headings in expected are matched in order as report sections;
// only a references heading after the last section found is cut, unless it
// names an expected section that has not appeared yet.
func StripReferences(text string, expected ...string) string {
	next, from := 0, 0
	for _, loc := range sectionRe.FindAllStringSubmatchIndex(text, -1) {
		if next < len(expected) && headingKey(text[loc[2]:loc[3]]) == headingKey(expected[next]) {
			next++
			from = loc[1]
		}
	}
	pending := make(map[string]bool, len(expected)-next)
	for _, e := range expected[next:] {
		pending[headingKey(e)] = true
	}

	for _, loc := range referencesRe.FindAllStringIndex(text[from:], -1) {
		if pending[headingKey(text[from+loc[0]:from+loc[1]])] {
			continue
		}
		text = text[:from+loc[0]]
		break
	}
	return strings.TrimSpace(text)
}

// headingKey normalizes a heading line or title for comparison.
func headingKey(s string) string {
	return strings.ToLower(strings.Trim(s, "#*: \t"))
}

func missing(expected, got []string) []string {
	have := make(map[string]bool, len(got))
	for _, s := range got {
		have[strings.ToLower(s)] = true
	}
	var out []string
	for _, s := range expected {
		if !have[strings.ToLower(s)] {
			out = append(out, s)
		}
	}
	return out
}

// unfence removes a code fence wrapped around the whole reply.
func unfence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return text
	}
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
