package agent

import "context"

// PlanRequest carries everything the external Planner needs to propose
// the next step (spec.md §6, "Planner contract").
type PlanRequest struct {
	Instruction      string
	CurrentJPEG      []byte
	PreviousJPEG     []byte // optional
	LastActionsBrief string
	StepIndex        int
	MaxSteps         int
	Note             string
	Today            string
	AllowDanger      bool

	// ThinkingLevel is an opaque planner hint (e.g. Gemini's "thinking
	// level"); the core passes it through without interpreting it.
	ThinkingLevel string
}

// Planner is the external vision-language capability that maps a
// screenshot and context to the next action plan. Concrete backends
// (Gemini, Claude, or a UI decorator that snoops the result) implement
// this; AgentLoop only depends on the interface (spec.md §9).
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (raw []byte, err error)
}

// PlannerFunc adapts a function to the Planner interface, useful for
// tests and for the UI's "monkey-patched" interception decorator.
type PlannerFunc func(ctx context.Context, req PlanRequest) ([]byte, error)

// Plan implements Planner.
func (f PlannerFunc) Plan(ctx context.Context, req PlanRequest) ([]byte, error) {
	return f(ctx, req)
}
