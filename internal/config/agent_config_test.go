package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAgentConfigDefaults(t *testing.T) {
	cfg, err := LoadAgentConfig()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.PlannerBackend)
	assert.Equal(t, "low", cfg.ThinkingLevel)
	assert.Equal(t, 30, cfg.MaxSteps)
	assert.Equal(t, 2, cfg.MinStepsBeforeDone)
	assert.Equal(t, 3, cfg.MaxPlanAttempts)
	assert.True(t, cfg.DoReplug)
	assert.False(t, cfg.AllowDanger)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, 150*time.Millisecond, cfg.StepSleep())
	assert.Equal(t, 120*time.Second, cfg.OverallTimeout())
	assert.Equal(t, 1200*time.Millisecond, cfg.PrePlanFrameTimeout())
	assert.Equal(t, 2800*time.Millisecond, cfg.PostActionFrameTimeout())
}

func TestLoadAgentConfigRejectsUnknownBackend(t *testing.T) {
	setEnv(t, map[string]string{"KAIVM_PLANNER_BACKEND": "chatgpt"})
	_, err := LoadAgentConfig()
	assert.Error(t, err)
}

func TestLoadAgentConfigAcceptsAnthropicBackend(t *testing.T) {
	setEnv(t, map[string]string{"KAIVM_PLANNER_BACKEND": "anthropic"})
	cfg, err := LoadAgentConfig()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.PlannerBackend)
}

func TestLoadAgentConfigRejectsZeroMaxSteps(t *testing.T) {
	setEnv(t, map[string]string{"KAIVM_MAX_STEPS": "0"})
	_, err := LoadAgentConfig()
	assert.Error(t, err)
}
