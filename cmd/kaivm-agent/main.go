// Command kaivm-agent runs one closed-loop instruction against the
// target computer (spec.md §4.11): it reads the latest published
// screenshot, asks a vision-language Planner for the next actions, and
// executes them over the USB-HID gadget until the instruction is done.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hardrave/KaiVM/internal/agent"
	"github.com/hardrave/KaiVM/internal/capture"
	"github.com/hardrave/KaiVM/internal/config"
	"github.com/hardrave/KaiVM/internal/hid"
	anthropicplanner "github.com/hardrave/KaiVM/internal/planner/anthropic"
	geminiplanner "github.com/hardrave/KaiVM/internal/planner/gemini"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:     "kaivm-agent [instruction]",
		Short:   "Run the kaiVM agent loop for a single instruction.",
		Example: `kaivm-agent "open a terminal and run ls"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := run(cmd.Context(), args[0], confirm)
			if err != nil {
				return err
			}
			fmt.Println(result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "ask for confirmation before executing each step's actions")
	return cmd
}

func run(ctx context.Context, instruction string, interactiveConfirm bool) (string, error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	agentCfg, err := config.LoadAgentConfig()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load agent config")
		return "", err
	}
	// The --confirm flag and KAIVM_INTERACTIVE env var both request
	// interactive confirmation; either one turns it on.
	interactiveConfirm = interactiveConfirm || agentCfg.Interactive

	hidCfg, err := config.LoadHIDConfig()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load HID config")
		return "", err
	}

	planner, err := buildPlanner(agentCfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build planner")
		return "", err
	}

	cal := hid.IdentityCalibration()
	if hidCfg.Calibration != "" {
		cal, err = hid.ParseCalibration(hidCfg.Calibration)
		if err != nil {
			logger.Error().Err(err).Msg("failed to parse mouse calibration")
			return "", err
		}
	}

	kbdEndpoint := hid.NewEndpoint(hidCfg.KeyboardDevice, logger)
	kbdEndpoint.IOTimeout = hidCfg.IOTimeout()
	relEndpoint := hid.NewEndpoint(hidCfg.RelativeMouseDevice, logger)
	relEndpoint.IOTimeout = hidCfg.IOTimeout()
	absEndpoint := hid.NewEndpoint(hidCfg.AbsoluteMouseDevice, logger)
	absEndpoint.IOTimeout = hidCfg.IOTimeout()

	keyboard := hid.NewKeyboardMapper(kbdEndpoint)
	relMouse := hid.NewRelativeMouse(relEndpoint)
	absMouse := hid.NewAbsoluteMouse(absEndpoint, cal)

	executor := &agent.ActionExecutor{
		Keyboard:    keyboard,
		RelMouse:    relMouse,
		AbsMouse:    absMouse,
		AllowDanger: agentCfg.AllowDanger,
		DryRun:      agentCfg.DryRun,
		Logger:      &logger,
	}

	gadget := hid.NewGadgetControl(hidCfg.GadgetName, logger)
	snapshot := capture.NewLatestSnapshot(agentCfg.SnapshotPath)

	var confirmer agent.Confirmer = agent.AlwaysConfirm{}
	if interactiveConfirm {
		confirmer = agent.NewStdinConfirmer(os.Stdin, os.Stdout)
	}

	loopCfg := agent.DefaultLoopConfig()
	loopCfg.MaxSteps = agentCfg.MaxSteps
	loopCfg.StepSleep = agentCfg.StepSleep()
	loopCfg.OverallTimeout = agentCfg.OverallTimeout()
	loopCfg.PrePlanFrameTimeout = agentCfg.PrePlanFrameTimeout()
	loopCfg.PostActionFrameTimeout = agentCfg.PostActionFrameTimeout()
	loopCfg.MinStepsBeforeDone = agentCfg.MinStepsBeforeDone
	loopCfg.DoReplug = agentCfg.DoReplug
	loopCfg.AllowDanger = agentCfg.AllowDanger
	loopCfg.Interactive = interactiveConfirm
	loopCfg.StopFilePath = agentCfg.StopFilePath
	loopCfg.MaxPlanAttempts = agentCfg.MaxPlanAttempts
	loopCfg.FreshnessThreshold = agentCfg.FreshnessThreshold()
	loopCfg.FreshnessWait = agentCfg.FreshnessWait()

	loop := agent.NewAgentLoop(
		planner,
		agent.NewPlanValidator(),
		agent.NewActionNormalizer(agent.DefaultNormalizeConfig()),
		executor,
		snapshot,
		loopCfg,
		logger,
	)
	loop.Confirmer = confirmer
	loop.Gadget = gadget

	if agentCfg.StopFilePath != "" {
		if sw, err := agent.NewStopWatcher(agentCfg.StopFilePath, logger); err != nil {
			logger.Warn().Err(err).Msg("stop watcher unavailable, falling back to stat polling")
		} else {
			defer sw.Close()
			loop.StopSignal = sw
		}
	}

	return loop.Run(ctx, instruction), nil
}

func buildPlanner(cfg config.AgentConfig, logger zerolog.Logger) (agent.Planner, error) {
	switch cfg.PlannerBackend {
	case "anthropic":
		c := anthropicplanner.New(logger)
		return c, nil
	case "gemini":
		c := geminiplanner.New(logger)
		if cfg.PlannerModel != "" {
			c.Model = cfg.PlannerModel
		}
		c.ThinkingLevel = cfg.ThinkingLevel
		return c, nil
	default:
		return nil, fmt.Errorf("unknown planner backend %q", cfg.PlannerBackend)
	}
}
