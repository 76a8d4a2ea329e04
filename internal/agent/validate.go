package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// rawAction mirrors the untyped JSON object the planner emits for one
// action before it has been validated into an Action.
type rawAction struct {
	Type    string   `json:"type"`
	Ms      *int     `json:"ms"`
	Dx      *int     `json:"dx"`
	Dy      *int     `json:"dy"`
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
	Button  *string  `json:"button"`
	Text    *string  `json:"text"`
	Key     *string  `json:"key"`
	Summary *string  `json:"summary"`
}

type rawPlan struct {
	Reasoning string      `json:"reasoning"`
	Actions   []rawAction `json:"actions"`
}

var allowedButtons = map[string]bool{"left": true, "right": true, "middle": true}

// dangerPatterns is the fixed substring denylist applied to type_text
// content (spec.md §4.9).
var dangerPatterns = []string{
	"rm -", "rm -rf", "del /", "format ", "mkfs", "shutdown", "reboot",
	"passwd", "net user", "reg delete", "diskpart", "bcdedit",
}

// IsDangerousText reports whether text's lowercased form contains any
// entry of the fixed danger substring list.
func IsDangerousText(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range dangerPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// PlanValidator (C10) parses raw planner JSON into typed, bounds-checked
// Actions and rejects malformed or out-of-range input.
type PlanValidator struct{}

// NewPlanValidator returns a stateless PlanValidator.
func NewPlanValidator() *PlanValidator { return &PlanValidator{} }

// Parse validates raw planner JSON against the schema in spec.md §3 and
// returns the typed Plan. Every rejection is returned as an error;
// AgentLoop re-prompts the planner on it and ends the run once
// MaxPlanAttempts attempts have all been rejected.
func (v *PlanValidator) Parse(raw []byte) (Plan, error) {
	var rp rawPlan
	if err := json.Unmarshal(raw, &rp); err != nil {
		return Plan{}, fmt.Errorf("agent: plan is not valid JSON: %w", err)
	}
	if len(rp.Actions) < MinActionsPerPlan {
		return Plan{}, fmt.Errorf("agent: actions must be a non-empty array")
	}
	if len(rp.Actions) > MaxActionsPerPlan {
		return Plan{}, fmt.Errorf("agent: actions has %d entries, at most %d allowed", len(rp.Actions), MaxActionsPerPlan)
	}

	actions := make([]Action, 0, len(rp.Actions))
	for i, ra := range rp.Actions {
		act, err := v.parseAction(ra)
		if err != nil {
			return Plan{}, fmt.Errorf("agent: action %d: %w", i, err)
		}
		actions = append(actions, act)
	}

	return Plan{Reasoning: rp.Reasoning, Actions: actions}, nil
}

func (v *PlanValidator) parseAction(ra rawAction) (Action, error) {
	switch ActionType(ra.Type) {
	case ActionWait:
		ms := 0
		if ra.Ms != nil {
			ms = *ra.Ms
		}
		if ms < 0 || ms > 60000 {
			return Action{}, fmt.Errorf("wait.ms %d out of range [0,60000]", ms)
		}
		return Action{Type: ActionWait, Ms: ms}, nil

	case ActionMouseMoveRel:
		dx, dy := 0, 0
		if ra.Dx != nil {
			dx = *ra.Dx
		}
		if ra.Dy != nil {
			dy = *ra.Dy
		}
		// Validator bound is deliberately wider than the HID layer's
		// clamp to [-127,127]; see the open-question decision this
		// resolves.
		if dx < -4096 || dx > 4096 {
			return Action{}, fmt.Errorf("mouse_move_rel.dx %d out of range [-4096,4096]", dx)
		}
		if dy < -4096 || dy > 4096 {
			return Action{}, fmt.Errorf("mouse_move_rel.dy %d out of range [-4096,4096]", dy)
		}
		return Action{Type: ActionMouseMoveRel, Dx: dx, Dy: dy}, nil

	case ActionMouseMoveAbs:
		x, y := 0.0, 0.0
		if ra.X != nil {
			x = *ra.X
		}
		if ra.Y != nil {
			y = *ra.Y
		}
		if x < 0 || x > 1000 {
			return Action{}, fmt.Errorf("mouse_move_abs.x %v out of range [0,1000]", x)
		}
		if y < 0 || y > 1000 {
			return Action{}, fmt.Errorf("mouse_move_abs.y %v out of range [0,1000]", y)
		}
		return Action{Type: ActionMouseMoveAbs, X: x, Y: y}, nil

	case ActionMouseClick:
		button := "left"
		if ra.Button != nil {
			button = *ra.Button
		}
		if !allowedButtons[button] {
			return Action{}, fmt.Errorf("mouse_click.button %q invalid", button)
		}
		act := Action{Type: ActionMouseClick, Button: button}
		if ra.X != nil {
			act.X = *ra.X
		}
		if ra.Y != nil {
			act.Y = *ra.Y
		}
		return act, nil

	case ActionTypeText:
		text := ""
		if ra.Text != nil {
			text = *ra.Text
		}
		if utf8.RuneCountInString(text) > 2000 {
			return Action{}, fmt.Errorf("type_text.text exceeds 2000 characters")
		}
		return Action{Type: ActionTypeText, Text: text}, nil

	case ActionKey:
		key := ""
		if ra.Key != nil {
			key = *ra.Key
		}
		if utf8.RuneCountInString(key) > 64 {
			return Action{}, fmt.Errorf("key.key exceeds 64 characters")
		}
		return Action{Type: ActionKey, Key: key}, nil

	case ActionDone:
		summary := ""
		if ra.Summary != nil {
			summary = *ra.Summary
		}
		return Action{Type: ActionDone, Summary: summary}, nil

	default:
		return Action{}, fmt.Errorf("unsupported action type: %q", ra.Type)
	}
}
