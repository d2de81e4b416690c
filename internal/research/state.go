// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research runs one research pass: concurrent per-topic research
// stages, evaluation of the merged findings, bounded refinement, report
// composition and citation rewriting.
//
// See docs/ARCHITECTURE.md § Pipeline Driver.
package research

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/marketing-research/internal/sources"
	"github.com/pdiddy/marketing-research/pkg/types"
)

// Phase names a pipeline state.
type Phase string

const (
	PhaseFanOut      Phase = "FAN_OUT"
	PhaseMerge       Phase = "MERGE"
	PhaseEvaluate    Phase = "EVALUATE"
	PhaseRefine      Phase = "REFINE"
	PhaseReMerge     Phase = "RE-MERGE"
	PhaseCompose     Phase = "COMPOSE"
	PhaseCiteRewrite Phase = "CITE_REWRITE"
	PhaseDone        Phase = "DONE"
)

// PassState is the explicit context threaded through one research pass.
// Per-topic records live in Topics; Sources is the pass-wide registry the
// composer cites from. Writers are sequenced by the pipeline, so no
// locking is needed.
type PassState struct {
	ID   string     `json:"id"`
	Plan types.Plan `json:"plan"`

	// Phase is the last phase entered; Trace lists every phase in order.
	Phase Phase   `json:"phase"`
	Trace []Phase `json:"trace"`

	Topics  map[string]*types.ResearchState `json:"topics"`
	Sources *sources.Registry               `json:"sources"`

	// Merged is the combined synthesis the evaluator and composer read.
	Merged string `json:"merged"`

	// Verdicts, FollowUps and Findings accumulate across refinement
	// rounds; Findings holds each round's new text.
	Verdicts  []types.EvaluationVerdict `json:"verdicts,omitempty"`
	FollowUps []string                  `json:"follow_ups,omitempty"`
	Findings  []string                  `json:"findings,omitempty"`
	Rounds    int                       `json:"rounds"`

	Cited types.CitedReport `json:"cited"`
	Final types.FinalReport `json:"final"`

	Coverage types.Coverage `json:"coverage"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPassState returns a fresh state with a new pass id.
func NewPassState(plan types.Plan) *PassState {
	now := time.Now().UTC()
	return &PassState{
		ID:        uuid.NewString(),
		Plan:      plan,
		Topics:    make(map[string]*types.ResearchState, len(plan.Topics)),
		Sources:   sources.NewRegistry(),
		StartedAt: now,
		UpdatedAt: now,
	}
}

func (s *PassState) enter(p Phase) {
	s.Phase = p
	s.Trace = append(s.Trace, p)
	s.UpdatedAt = time.Now().UTC()
}

// Refined reports whether any refinement round ran.
func (s *PassState) Refined() bool {
	return s.Rounds > 0
}

// Checkpointer stores a snapshot of the pass after each phase. Failures are
// logged by the pipeline and never stop the pass.
type Checkpointer interface {
	Checkpoint(ctx context.Context, state *PassState) error
}

// StageError reports which phase of a pass failed and why.
type StageError struct {
	Phase Phase
	Topic string
	Err   error
}

func (e *StageError) Error() string {
	if e.Topic != "" {
		return fmt.Sprintf("%s (%s): %v", e.Phase, e.Topic, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
