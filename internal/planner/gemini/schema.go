package gemini

// planSchema is the JSON Schema handed to Gemini's structured-output
// mode, translated from original_source/kaivm/gemini/schema.py's
// PLAN_SCHEMA. The action enum and bounds match this module's
// agent.ActionType vocabulary and agent.PlanValidator's bounds, not the
// original Python's (which had a single combined "mouse_move" type and
// an int8 dx/dy range).
var planSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"reasoning": map[string]any{
			"type":        "string",
			"description": "Brief explanation of the current state and why these actions were chosen.",
		},
		"actions": map[string]any{
			"type":     "array",
			"minItems": 1,
			"maxItems": 8,
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": true,
				"properties": map[string]any{
					"type": map[string]any{
						"type": "string",
						"enum": []string{
							"wait", "mouse_move_rel", "mouse_move_abs",
							"mouse_click", "type_text", "key", "done",
						},
					},
					"ms":      map[string]any{"type": "integer", "minimum": 0, "maximum": 60000},
					"dx":      map[string]any{"type": "integer", "minimum": -4096, "maximum": 4096},
					"dy":      map[string]any{"type": "integer", "minimum": -4096, "maximum": 4096},
					"x":       map[string]any{"type": "number", "minimum": 0, "maximum": 1000},
					"y":       map[string]any{"type": "number", "minimum": 0, "maximum": 1000},
					"button":  map[string]any{"type": "string", "enum": []string{"left", "right", "middle"}},
					"text":    map[string]any{"type": "string", "maxLength": 2000},
					"key":     map[string]any{"type": "string", "maxLength": 64},
					"summary": map[string]any{"type": "string", "maxLength": 2000},
				},
				"required": []string{"type"},
			},
		},
	},
	"required": []string{"reasoning", "actions"},
}
