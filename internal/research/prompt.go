// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"bytes"
	"text/template"

	"github.com/pdiddy/marketing-research/pkg/types"
)

const plannerSystem = `You are a marketing research planner. Produce search queries that together cover the research goal. Respond only with the JSON object requested; do not add commentary.`

var plannerTmpl = template.Must(template.New("planner").Parse(`Campaign brief:
{{.Brief}}

Research topic: {{.Topic.Title}}
Goal: {{.Topic.Goal}}
{{- if .Topic.QueryPrompt}}
Guidance: {{.Topic.QueryPrompt}}
{{- end}}

Write between {{.Topic.MinQueries}} and {{.Topic.MaxQueries}} distinct search queries, ordered from most to least important.
Return {"queries": [...]}.
`))

const evaluatorSystem = `You are a critical reviewer of marketing research. Judge whether the findings answer every research goal with enough depth and specific evidence. If gaps exist, grade "fail" and list follow-up search queries that would close them. If no gaps exist, grade "pass", leave follow_up_queries empty, and use the comment to suggest one tangential area worth exploring.`

var evaluatorTmpl = template.Must(template.New("evaluator").Parse(`Campaign brief:
{{.Brief}}

Research goals:
{{- range .Topics}}
- {{.Title}}: {{.Goal}}
{{- end}}

Findings:
{{.Merged}}

Return at most {{.MaxFollowUps}} follow-up queries.
`))

const composerSystem = `You are a marketing analyst writing a research report. Use only facts present in the supplied findings. Cite every factual claim inline with <cite source="src-N"/> immediately after the claim, using only the source ids listed. Do not add a references, sources or bibliography section.`

var composerTmpl = template.Must(template.New("composer").Parse(`Campaign brief:
{{.Brief}}

Write the report in markdown with exactly these level-two sections, in this order:
{{- range .Sections}}
## {{.}}
{{- end}}

The last section draws cross-topic insights and recommendations.

Findings:
{{range .Inputs}}
=== {{.Title}} ===
{{.Text}}
{{end}}
Sources:
{{- range .Sources}}
{{.ShortID}} | {{.DisplayText}} | {{.URL}}
{{- range .SupportedClaims}}
  supports: {{.TextSegment}}
{{- end}}
{{- end}}
`))

type plannerData struct {
	Brief string
	Topic types.Topic
}

type evaluatorData struct {
	Brief        string
	Topics       []types.Topic
	Merged       string
	MaxFollowUps int
}

type composerData struct {
	Brief    string
	Sections []string
	Inputs   []ComposeInput
	Sources  []types.Source
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
