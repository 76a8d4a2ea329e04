package gemini

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hardrave/KaiVM/internal/agent"
)

func TestBuildUserPromptIncludesContext(t *testing.T) {
	req := agent.PlanRequest{
		Instruction:      "open a terminal",
		StepIndex:        2,
		MaxSteps:         30,
		LastActionsBrief: "key(enter)",
		Note:             "frame did not update",
		Today:            "2026-07-29",
	}

	out := buildUserPrompt(req)
	assert.Contains(t, out, "Instruction: open a terminal")
	assert.Contains(t, out, "Step: 2/30")
	assert.Contains(t, out, "key(enter)")
	assert.Contains(t, out, "frame did not update")
	assert.Contains(t, out, "2026-07-29")
	assert.Contains(t, out, "allow-danger is NOT enabled")
}

func TestBuildUserPromptAllowDangerNote(t *testing.T) {
	req := agent.PlanRequest{Instruction: "x", AllowDanger: true}
	out := buildUserPrompt(req)
	assert.Contains(t, out, "allow-danger is enabled")
}

func TestBuildUserPromptDefaultsEmptyFields(t *testing.T) {
	out := buildUserPrompt(agent.PlanRequest{Instruction: "x"})
	assert.True(t, strings.Contains(out, "Last actions: -"))
	assert.True(t, strings.Contains(out, "Runner note: -"))
}

func TestPlanSchemaListsAllActionTypes(t *testing.T) {
	actions := planSchema["properties"].(map[string]any)["actions"].(map[string]any)
	items := actions["items"].(map[string]any)
	typeEnum := items["properties"].(map[string]any)["type"].(map[string]any)["enum"].([]string)

	assert.ElementsMatch(t, []string{
		"wait", "mouse_move_rel", "mouse_move_abs", "mouse_click", "type_text", "key", "done",
	}, typeEnum)
}
