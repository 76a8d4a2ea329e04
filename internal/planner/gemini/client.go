// Package gemini implements agent.Planner against Google's Gemini API
// using structured JSON output, grounded on the system/user prompt
// templates and the JSON schema of original_source/kaivm/gemini/client.py.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/hardrave/KaiVM/internal/agent"
)

// DefaultModel matches the original's DEFAULT_MODEL.
const DefaultModel = "gemini-3-flash-preview"

// Client is a Planner backed by Gemini's structured-output mode.
type Client struct {
	Model         string
	ThinkingLevel string // Gemini 3 "thinking_level": "minimal"|"low"|"high"
	MaxAttempts   int    // retries on invalid-JSON response, matching timeout_steps+1
	APIKey        string // falls back to GEMINI_API_KEY / GOOGLE_API_KEY

	logger zerolog.Logger
}

// New builds a Client with the original's defaults (model
// "gemini-3-flash-preview", thinking level "low", up to 3 attempts).
func New(logger zerolog.Logger) *Client {
	return &Client{
		Model:         DefaultModel,
		ThinkingLevel: "low",
		MaxAttempts:   3,
		logger:        logger.With().Str("component", "gemini-planner").Logger(),
	}
}

func (c *Client) apiKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		return v
	}
	return os.Getenv("GOOGLE_API_KEY")
}

func (c *Client) newGenaiClient(ctx context.Context) (*genai.Client, error) {
	cc := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if key := c.apiKey(); key != "" {
		cc.APIKey = key
	}
	return genai.NewClient(ctx, cc)
}

// Plan implements agent.Planner. It retries on output that does not parse
// as a JSON object by re-prompting with the previous bad output attached,
// matching the original's retry loop. The output is not checked against
// planSchema here.
func (c *Client) Plan(ctx context.Context, req agent.PlanRequest) ([]byte, error) {
	client, err := c.newGenaiClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	user := buildUserPrompt(req)
	imagePart := &genai.Part{InlineData: &genai.Blob{Data: req.CurrentJPEG, MIMEType: "image/jpeg"}}

	thinkingLevel := req.ThinkingLevel
	if thinkingLevel == "" {
		thinkingLevel = c.ThinkingLevel
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction:  genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ThinkingConfig:     &genai.ThinkingConfig{ThinkingLevel: thinkingLevel},
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: planSchema,
	}

	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastText string
	for attempt := 0; attempt < attempts; attempt++ {
		parts := []*genai.Part{imagePart, genai.NewPartFromText(user)}
		if attempt > 0 && lastText != "" {
			parts = append(parts, genai.NewPartFromText(
				"Your previous output was invalid or did not match the schema. "+
					"Return a corrected JSON object ONLY, matching the schema exactly. "+
					"Previous output:\n"+lastText))
		}

		resp, err := client.Models.GenerateContent(ctx, c.Model, []*genai.Content{
			{Parts: parts, Role: genai.RoleUser},
		}, cfg)
		if err != nil {
			return nil, fmt.Errorf("gemini: generate content: %w", err)
		}

		text := resp.Text()
		lastText = text

		var probe map[string]any
		if json.Unmarshal([]byte(text), &probe) == nil {
			return []byte(text), nil
		}
		c.logger.Warn().Int("attempt", attempt+1).Str("response_prefix", truncate(text, 200)).
			Msg("gemini returned non-JSON")
	}

	return nil, fmt.Errorf("gemini: failed to produce valid JSON after %d attempts", attempts)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
