// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ResearchState is the evolving record for one topic of a research pass.
// Sources and URLToShortID are the topic-scoped source registry contents;
// the pass-wide registry is kept separately by the pipeline.
type ResearchState struct {
	// Topic is the topic name the state belongs to.
	Topic string `json:"topic" yaml:"topic"`

	// Queries lists the planned search queries in planner order.
	Queries []string `json:"queries" yaml:"queries"`

	// Synthesis is the prose produced from the query results.
	Synthesis string `json:"synthesis" yaml:"synthesis"`

	// Sources maps short id to source for this topic.
	Sources map[string]Source `json:"sources" yaml:"sources"`

	// URLToShortID maps a source URL to its short id for this topic.
	URLToShortID map[string]string `json:"url_to_short_id" yaml:"url_to_short_id"`

	// FailedQueries lists queries whose search errored or returned nothing.
	FailedQueries []string `json:"failed_queries,omitempty" yaml:"failed_queries,omitempty"`

	// Error records why the stage produced no output. Empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// IsEmpty reports whether the stage contributed no synthesis.
func (s ResearchState) IsEmpty() bool {
	return s.Synthesis == ""
}

// Grade is the evaluator's overall judgement.
type Grade string

const (
	GradePass Grade = "pass"
	GradeFail Grade = "fail"
)

// EvaluationVerdict is the evaluator's structured critique of a merged
// synthesis. An empty FollowUpQueries is the only signal the pipeline reads
// to stop refining; Comment is advisory.
type EvaluationVerdict struct {
	Grade           Grade    `json:"grade" yaml:"grade"`
	Comment         string   `json:"comment" yaml:"comment"`
	FollowUpQueries []string `json:"follow_up_queries" yaml:"follow_up_queries"`
}

// NeedsRefinement reports whether the verdict asks for follow-up research.
func (v EvaluationVerdict) NeedsRefinement() bool {
	return len(v.FollowUpQueries) > 0
}

// CitedReport is the composer output with inline <cite source="src-N"/> tags.
type CitedReport struct {
	// Text is the report body with citation tags.
	Text string `json:"text" yaml:"text"`

	// CitedIDs lists the distinct short ids the text cites, in first
	// appearance order, including ids the registry does not know.
	CitedIDs []string `json:"cited_ids" yaml:"cited_ids"`

	// Sections lists the level-two headings found in Text.
	Sections []string `json:"sections" yaml:"sections"`

	// MissingSections lists expected headings absent from Text.
	MissingSections []string `json:"missing_sections,omitempty" yaml:"missing_sections,omitempty"`
}

// FinalReport is a CitedReport with every tag replaced by a markdown link.
type FinalReport struct {
	// Text is the rewritten report.
	Text string `json:"text" yaml:"text"`

	// Sources lists the sources the report links to, in first citation order.
	Sources []Source `json:"sources" yaml:"sources"`

	// Dropped lists tag ids that could not be resolved and were removed.
	Dropped []string `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// Coverage counts search calls across a pass.
type Coverage struct {
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Total     int `json:"total" yaml:"total"`
}

// Failed returns the number of searches that contributed nothing.
func (c Coverage) Failed() int {
	return c.Total - c.Succeeded
}

// Degraded reports whether any search contributed nothing.
func (c Coverage) Degraded() bool {
	return c.Succeeded < c.Total
}

// Add accumulates o into c.
func (c *Coverage) Add(o Coverage) {
	c.Succeeded += o.Succeeded
	c.Total += o.Total
}
