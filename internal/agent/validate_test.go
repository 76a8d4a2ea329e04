package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanValidatorParseValidPlan(t *testing.T) {
	v := NewPlanValidator()
	raw := []byte(`{"reasoning":"click the button","actions":[
		{"type":"wait","ms":500},
		{"type":"mouse_click","button":"left","x":100,"y":200},
		{"type":"done","summary":"clicked"}
	]}`)

	plan, err := v.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "click the button", plan.Reasoning)
	require.Len(t, plan.Actions, 3)
	assert.Equal(t, ActionWait, plan.Actions[0].Type)
	assert.Equal(t, 500, plan.Actions[0].Ms)
	assert.Equal(t, ActionMouseClick, plan.Actions[1].Type)
	assert.Equal(t, "left", plan.Actions[1].Button)
	assert.Equal(t, ActionDone, plan.Actions[2].Type)
	assert.Equal(t, "clicked", plan.Actions[2].Summary)
}

func TestPlanValidatorRejectsEmptyActions(t *testing.T) {
	v := NewPlanValidator()
	_, err := v.Parse([]byte(`{"reasoning":"x","actions":[]}`))
	assert.Error(t, err)
}

func TestPlanValidatorRejectsMissingActions(t *testing.T) {
	v := NewPlanValidator()
	_, err := v.Parse([]byte(`{"reasoning":"x"}`))
	assert.Error(t, err)
}

func TestPlanValidatorRejectsInvalidJSON(t *testing.T) {
	v := NewPlanValidator()
	_, err := v.Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestPlanValidatorRejectsUnknownType(t *testing.T) {
	v := NewPlanValidator()
	_, err := v.Parse([]byte(`{"actions":[{"type":"scroll"}]}`))
	assert.Error(t, err)
}

func TestPlanValidatorWaitBoundary(t *testing.T) {
	v := NewPlanValidator()

	_, err := v.Parse([]byte(`{"actions":[{"type":"wait","ms":0}]}`))
	assert.NoError(t, err, "ms=0 is a no-op, not rejected")

	_, err = v.Parse([]byte(`{"actions":[{"type":"wait","ms":60000}]}`))
	assert.NoError(t, err, "ms=60000 is accepted")

	_, err = v.Parse([]byte(`{"actions":[{"type":"wait","ms":60001}]}`))
	assert.Error(t, err, ">60000 fails validation")
}

func TestPlanValidatorMouseMoveRelBoundary(t *testing.T) {
	v := NewPlanValidator()

	_, err := v.Parse([]byte(`{"actions":[{"type":"mouse_move_rel","dx":4096,"dy":-4096}]}`))
	assert.NoError(t, err)

	_, err = v.Parse([]byte(`{"actions":[{"type":"mouse_move_rel","dx":4097,"dy":0}]}`))
	assert.Error(t, err, "dx outside [-4096,4096] must be rejected at validation")
}

func TestPlanValidatorMouseClickRejectsBadButton(t *testing.T) {
	v := NewPlanValidator()
	_, err := v.Parse([]byte(`{"actions":[{"type":"mouse_click","button":"scroll"}]}`))
	assert.Error(t, err)
}

func TestPlanValidatorTypeTextLengthLimit(t *testing.T) {
	v := NewPlanValidator()
	long := make([]byte, 2001)
	for i := range long {
		long[i] = 'a'
	}
	_, err := v.Parse([]byte(`{"actions":[{"type":"type_text","text":"` + string(long) + `"}]}`))
	assert.Error(t, err)
}

func TestPlanValidatorKeyLengthLimit(t *testing.T) {
	v := NewPlanValidator()
	long := make([]byte, 65)
	for i := range long {
		long[i] = 'a'
	}
	_, err := v.Parse([]byte(`{"actions":[{"type":"key","key":"` + string(long) + `"}]}`))
	assert.Error(t, err)
}

func TestIsDangerousText(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"rm -rf /", true},
		{"please shutdown the machine", true},
		{"format c:", true},
		{"hello world", false},
		{"click the Reboot button in the docs", true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDangerousText(tt.text))
		})
	}
}

func TestDangerFilterMonotone(t *testing.T) {
	// L3: enabling allow_danger never reduces the set of executed
	// actions. We verify the filter's predicate itself is stable: it
	// never flips from "dangerous" back to "safe" based on anything
	// other than the text content.
	text := "please shutdown now"
	assert.True(t, IsDangerousText(text))
	assert.True(t, IsDangerousText(text), "repeated evaluation must be stable")
}
