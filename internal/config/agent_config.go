package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AgentConfig configures kaivm-agent: which Planner backend to use,
// the AgentLoop's timings, and where it reads screenshots from.
// Grounded on LoadExternalAgentRunnerConfig's struct-plus-validation
// shape, with the loop timings matching spec.md §4.11's defaults
// (internal/agent.DefaultLoopConfig).
type AgentConfig struct {
	// PlannerBackend selects the concrete Planner: "gemini" or "anthropic".
	PlannerBackend string `envconfig:"PLANNER_BACKEND" default:"gemini"`
	PlannerModel   string `envconfig:"PLANNER_MODEL"` // gemini only, empty means its default; anthropic always uses its DefaultModel
	ThinkingLevel  string `envconfig:"THINKING_LEVEL" default:"low"`

	SnapshotPath string `envconfig:"SNAPSHOT_PATH" default:"/run/kaivm/latest.jpg"`

	MaxSteps           int     `envconfig:"MAX_STEPS" default:"30"`
	StepSleepSeconds   float64 `envconfig:"STEP_SLEEP_SECONDS" default:"0.15"`
	OverallTimeoutSeconds float64 `envconfig:"OVERALL_TIMEOUT_SECONDS" default:"120"`
	PrePlanFrameTimeoutSeconds    float64 `envconfig:"PRE_PLAN_FRAME_TIMEOUT_SECONDS" default:"1.2"`
	PostActionFrameTimeoutSeconds float64 `envconfig:"POST_ACTION_FRAME_TIMEOUT_SECONDS" default:"2.8"`
	MinStepsBeforeDone int     `envconfig:"MIN_STEPS_BEFORE_DONE" default:"2"`
	MaxPlanAttempts    int     `envconfig:"MAX_PLAN_ATTEMPTS" default:"3"`
	FreshnessThresholdSeconds float64 `envconfig:"FRESHNESS_THRESHOLD_SECONDS" default:"2"`
	FreshnessWaitSeconds      float64 `envconfig:"FRESHNESS_WAIT_SECONDS" default:"3"`

	DoReplug    bool   `envconfig:"DO_REPLUG" default:"true"`
	AllowDanger bool   `envconfig:"ALLOW_DANGER" default:"false"`
	Interactive bool   `envconfig:"INTERACTIVE" default:"false"`
	StopFilePath string `envconfig:"STOP_FILE_PATH" default:"/tmp/kaivm.stop"`

	// DryRun runs the full plan/normalize/validate pipeline and logs what
	// would have been sent to HID without opening any device.
	DryRun bool `envconfig:"DRY_RUN" default:"false"`
}

func (c AgentConfig) StepSleep() time.Duration          { return secondsToDuration(c.StepSleepSeconds) }
func (c AgentConfig) OverallTimeout() time.Duration     { return secondsToDuration(c.OverallTimeoutSeconds) }
func (c AgentConfig) PrePlanFrameTimeout() time.Duration { return secondsToDuration(c.PrePlanFrameTimeoutSeconds) }
func (c AgentConfig) PostActionFrameTimeout() time.Duration {
	return secondsToDuration(c.PostActionFrameTimeoutSeconds)
}
func (c AgentConfig) FreshnessThreshold() time.Duration { return secondsToDuration(c.FreshnessThresholdSeconds) }
func (c AgentConfig) FreshnessWait() time.Duration      { return secondsToDuration(c.FreshnessWaitSeconds) }

// LoadAgentConfig loads and validates AgentConfig from the
// environment.
func LoadAgentConfig() (AgentConfig, error) {
	var cfg AgentConfig
	if err := envconfig.Process("KAIVM", &cfg); err != nil {
		return AgentConfig{}, err
	}
	switch cfg.PlannerBackend {
	case "gemini", "anthropic":
	default:
		return AgentConfig{}, fmt.Errorf("config: KAIVM_PLANNER_BACKEND must be \"gemini\" or \"anthropic\", got %q", cfg.PlannerBackend)
	}
	if cfg.MaxSteps < 1 {
		return AgentConfig{}, fmt.Errorf("config: KAIVM_MAX_STEPS must be >= 1")
	}
	return cfg, nil
}
