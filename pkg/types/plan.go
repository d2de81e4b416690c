// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ProviderKind selects the search backend a topic uses.
type ProviderKind string

const (
	// ProviderWeb is search-grounded generation over the web.
	ProviderWeb ProviderKind = "web"

	// ProviderVideo is video platform search.
	ProviderVideo ProviderKind = "video"
)

// Topic is one research track of a plan. The pipeline runs one Research
// Stage per topic; the stage is parameterized entirely by these fields.
type Topic struct {
	// Name is the stable key for the topic (e.g. "search_trends").
	Name string `json:"name" yaml:"name"`

	// Title is the report section heading for the topic.
	Title string `json:"title" yaml:"title"`

	// Goal states what the research on this topic must find out.
	Goal string `json:"goal" yaml:"goal"`

	// QueryPrompt is extra guidance for the query planner.
	QueryPrompt string `json:"query_prompt,omitempty" yaml:"query_prompt,omitempty"`

	// MinQueries and MaxQueries bound the planned query count.
	MinQueries int `json:"min_queries,omitempty" yaml:"min_queries,omitempty"`
	MaxQueries int `json:"max_queries,omitempty" yaml:"max_queries,omitempty"`

	// Provider selects the search backend; empty means ProviderWeb.
	Provider ProviderKind `json:"provider,omitempty" yaml:"provider,omitempty"`
}

// Plan describes one research pass: a campaign brief and its topics.
type Plan struct {
	// Name labels the pass (e.g. the campaign name).
	Name string `json:"name" yaml:"name"`

	// Brief is the campaign context shared by every topic.
	Brief string `json:"brief" yaml:"brief"`

	// Topics lists the research tracks in report order.
	Topics []Topic `json:"topics" yaml:"topics"`
}

// PersistStatus reports the outcome of an artifact or blob write.
type PersistStatus string

const (
	PersistSucceeded PersistStatus = "succeeded"
	PersistFailed    PersistStatus = "failed"
)

// PersistResult is returned by persistence calls instead of an error.
// Callers must check Status.
type PersistResult struct {
	Status  PersistStatus `json:"status" yaml:"status"`
	Name    string        `json:"name" yaml:"name"`
	Version int           `json:"version,omitempty" yaml:"version,omitempty"`
	URI     string        `json:"uri,omitempty" yaml:"uri,omitempty"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the write succeeded.
func (r PersistResult) OK() bool {
	return r.Status == PersistSucceeded
}
