package anthropic

// planSchemaProperties is the "properties" object of the submit_plan
// tool's input schema, mirroring gemini.planSchema's action vocabulary
// and bounds so both backends are validated identically downstream by
// agent.PlanValidator.
var planSchemaProperties = map[string]any{
	"reasoning": map[string]any{
		"type":        "string",
		"description": "Brief explanation of the current state and why these actions were chosen.",
	},
	"actions": map[string]any{
		"type":     "array",
		"minItems": 1,
		"maxItems": 8,
		"items": map[string]any{
			"type": "object",
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
}
