// Package agent implements the closed-loop perception-plan-act runner:
// action parsing and validation, planner-pattern normalization, and the
// AgentLoop state machine that ties them to a Planner and the HID layer.
package agent

// ActionType discriminates the tagged-union Action variants the planner
// may return (spec.md §3).
type ActionType string

const (
	ActionWait         ActionType = "wait"
	ActionMouseMoveRel ActionType = "mouse_move_rel"
	ActionMouseMoveAbs ActionType = "mouse_move_abs"
	ActionMouseClick   ActionType = "mouse_click"
	ActionTypeText     ActionType = "type_text"
	ActionKey          ActionType = "key"
	ActionDone         ActionType = "done"
)

// Action is the typed, validated form of one planner-issued step. Only
// the fields relevant to Type are populated; the rest are zero.
type Action struct {
	Type ActionType

	Ms int // Wait

	Dx, Dy int // MouseMoveRel

	X, Y float64 // MouseMoveAbs, MouseClick (normalized 0..1000)

	Button string // MouseClick: left|right|middle

	Text string // TypeText

	Key string // Key: hotkey combo

	Summary string // Done
}

// Brief renders a short human-readable description of the action, used
// to build last_actions_brief for the planner's context and for the
// anti-loop heuristic's "previous brief contained key(enter)" check.
func (a Action) Brief() string {
	switch a.Type {
	case ActionWait:
		return "wait"
	case ActionMouseMoveRel:
		return "mouse_move_rel"
	case ActionMouseMoveAbs:
		return "mouse_move_abs"
	case ActionMouseClick:
		return "mouse_click(" + a.Button + ")"
	case ActionTypeText:
		return "type_text"
	case ActionKey:
		return "key(" + a.Key + ")"
	case ActionDone:
		return "done"
	default:
		return string(a.Type)
	}
}

// Plan is the planner's output: a rationale and an ordered, bounded list
// of actions (spec.md §3).
type Plan struct {
	Reasoning string   `json:"reasoning"`
	Actions   []Action `json:"-"`
}

// MinActionsPerPlan and MaxActionsPerPlan bound Plan.Actions at the
// validation boundary.
const (
	MinActionsPerPlan = 1
	MaxActionsPerPlan = 8
)
