package anthropic

import (
	"fmt"

	"github.com/hardrave/KaiVM/internal/agent"
)

// systemPrompt mirrors gemini.systemPrompt (both backends share the
// same operating brief; only the mechanism used to force a JSON shape
// out of the model differs).
const systemPrompt = `You are kaiVM: a cautious, high-reliability computer-use agent.
You control the target computer ONLY via a screenshot observation per step and HID
actions (keyboard + mouse). You MUST respond by calling the submit_plan tool exactly
once per step, with a "reasoning" string and an "actions" array.

- Use micro-steps: typically 1-8 actions per step.
- After UI-changing actions (launch, submit, navigation), include a wait action.
- Prefer keyboard over mouse whenever possible (more deterministic).
- mouse_move_rel moves are RELATIVE (dx, dy); mouse_move_abs and mouse_click take
  normalized screen coordinates in [0,1000].
- Never output a modifier key alone (e.g. "ctrl", "command", "win"); always combine
  it, e.g. "ctrl+l", "command+space", "alt+tab".
- If the screen seems unchanged, do not repeat the same actions; change exactly one thing.
- You are DONE only once the instruction's deliverable is satisfied. For
  information-seeking tasks, done.summary must contain the concrete facts read from
  the screen (numbers, units, currency, times), not just "results shown".
- Do not perform destructive actions unless allow-danger is enabled.
`

// buildUserPrompt renders the per-step context block, matching
// gemini.buildUserPrompt's fields so both backends receive the same
// information.
func buildUserPrompt(req agent.PlanRequest) string {
	note := req.Note
	if note == "" {
		note = "-"
	}
	lastActions := req.LastActionsBrief
	if lastActions == "" {
		lastActions = "-"
	}

	s := fmt.Sprintf(`Instruction: %s

Context:
- Today (local): %s
- Step: %d/%d
- Last actions: %s
- Runner note: %s

Plan the next small actions to progress toward the instruction. If (and only if) the
deliverable is satisfied, emit a single done action with a brief, fact-filled summary.
`, req.Instruction, req.Today, req.StepIndex, req.MaxSteps, lastActions, note)

	if req.AllowDanger {
		s += "\nNote: allow-danger is enabled, but still be careful and incremental.\n"
	} else {
		s += "\nNote: allow-danger is NOT enabled. Avoid destructive actions.\n"
	}
	return s
}
