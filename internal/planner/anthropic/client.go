// Package anthropic implements agent.Planner against Claude's vision
// API, using tool-use to force the plan into the same JSON shape the
// Gemini backend asks for via structured output. No Python ancestor:
// original_source only ever called Gemini (kaivm/gemini/client.py);
// this is a SPEC_FULL domain-stack addition selectable alongside it.
package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	anthropic "github.com/anthropics/anthropic-sdk-go" // imported as anthropic
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/hardrave/KaiVM/internal/agent"
)

// DefaultModel is a current vision-capable Claude model.
const DefaultModel = anthropic.ModelClaudeSonnet4_5

const planToolName = "submit_plan"

// Client is a Planner backed by Claude, via a forced tool call whose
// input schema mirrors gemini.planSchema.
type Client struct {
	Model       anthropic.Model
	MaxTokens   int64
	MaxAttempts int
	APIKey      string // falls back to ANTHROPIC_API_KEY

	client *anthropic.Client
	logger zerolog.Logger
}

// New builds a Client with sensible defaults (current Sonnet model, 3
// retry attempts on a malformed tool call, matching the Gemini
// backend's retry count).
func New(logger zerolog.Logger) *Client {
	return &Client{
		Model:       DefaultModel,
		MaxTokens:   1024,
		MaxAttempts: 3,
		logger:      logger.With().Str("component", "anthropic-planner").Logger(),
	}
}

func (c *Client) sdkClient() *anthropic.Client {
	if c.client != nil {
		return c.client
	}
	opts := []option.RequestOption{}
	key := c.APIKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	cl := anthropic.NewClient(opts...)
	c.client = &cl
	return c.client
}

// Plan implements agent.Planner. The instruction + screenshot go to
// Claude with tool_choice forced to planToolName, so the model's only
// way to respond is by filling the plan's input schema; on a malformed
// or refused tool call it retries with the prior attempt attached, the
// same shape as the Gemini backend's retry loop.
func (c *Client) Plan(ctx context.Context, req agent.PlanRequest) ([]byte, error) {
	client := c.sdkClient()

	tool := anthropic.ToolParam{
		Name:        planToolName,
		Description: anthropic.String("Submit the next batch of HID actions for the target computer."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Type:       "object",
			Properties: planSchemaProperties,
		},
	}

	imageB64 := base64.StdEncoding.EncodeToString(req.CurrentJPEG)
	user := buildUserPrompt(req)

	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastRaw string
	for attempt := 0; attempt < attempts; attempt++ {
		promptText := user
		if attempt > 0 && lastRaw != "" {
			promptText += "\nYour previous tool call was invalid or did not match the schema. " +
				"Call " + planToolName + " again with a corrected input.\nPrevious input:\n" + lastRaw
		}

		msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     c.Model,
			MaxTokens: c.MaxTokens,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Tools: []anthropic.ToolUnionParam{{OfTool: &tool}},
			ToolChoice: anthropic.ToolChoiceUnionParam{
				OfTool: &anthropic.ToolChoiceToolParam{Name: planToolName},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewImageBlockBase64("image/jpeg", imageB64),
					anthropic.NewTextBlock(promptText),
				),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic: generate message: %w", err)
		}

		for _, block := range msg.Content {
			if block.Type != "tool_use" || block.Name != planToolName {
				continue
			}
			raw := block.Input
			lastRaw = string(raw)

			var probe map[string]any
			if json.Unmarshal(raw, &probe) == nil {
				return raw, nil
			}
		}

		c.logger.Warn().Int("attempt", attempt+1).Msg("anthropic did not return a valid plan tool call")
	}

	return nil, fmt.Errorf("anthropic: failed to produce a valid plan after %d attempts", attempts)
}
