package agent

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hardrave/KaiVM/internal/capture"
)

// SnapshotReader is the subset of LatestSnapshot's interface the
// AgentLoop needs: read the current frame, and observe when it last
// changed.
type SnapshotReader interface {
	Read() (capture.Frame, error)
	ModTime() (int64, error)
}

// GadgetRebinder is the subset of GadgetControl's interface the
// AgentLoop optionally invokes at run start.
type GadgetRebinder interface {
	Rebind()
	WaitConfigured(ctx context.Context, timeout time.Duration) bool
}

// LoopConfig holds the tunable timings of the AgentLoop state machine
// (spec.md §4.11 defaults).
type LoopConfig struct {
	MaxSteps               int
	StepSleep              time.Duration
	OverallTimeout         time.Duration
	PrePlanFrameTimeout    time.Duration
	PostActionFrameTimeout time.Duration
	MinStepsBeforeDone     int
	DoReplug               bool
	AllowDanger            bool
	Interactive            bool
	StopFilePath           string
	MaxPlanAttempts        int
	FreshnessThreshold     time.Duration
	FreshnessWait          time.Duration
}

// DefaultLoopConfig returns the defaults named throughout spec.md §4.11.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxSteps:               30,
		StepSleep:              150 * time.Millisecond,
		OverallTimeout:         120 * time.Second,
		PrePlanFrameTimeout:    1200 * time.Millisecond,
		PostActionFrameTimeout: 2800 * time.Millisecond,
		MinStepsBeforeDone:     2,
		DoReplug:               true,
		StopFilePath:           "/tmp/kaivm.stop",
		MaxPlanAttempts:        3,
		FreshnessThreshold:     2 * time.Second,
		FreshnessWait:          3 * time.Second,
	}
}

// AgentLoop (C12) runs the observe-plan-act state machine for one
// instruction, from construction to a terminal summary string.
type AgentLoop struct {
	Planner    Planner
	Validator  *PlanValidator
	Normalizer *ActionNormalizer
	Executor   *ActionExecutor
	Confirmer  Confirmer
	Gadget     GadgetRebinder
	Snapshot   SnapshotReader
	StopSignal StopSignal

	Cfg    LoopConfig
	Logger zerolog.Logger

	RunID string
}

// NewAgentLoop constructs an AgentLoop with a fresh run identifier.
func NewAgentLoop(planner Planner, validator *PlanValidator, normalizer *ActionNormalizer, executor *ActionExecutor, snapshot SnapshotReader, cfg LoopConfig, logger zerolog.Logger) *AgentLoop {
	confirmer := Confirmer(AlwaysConfirm{})
	return &AgentLoop{
		Planner:    planner,
		Validator:  validator,
		Normalizer: normalizer,
		Executor:   executor,
		Confirmer:  confirmer,
		Snapshot:   snapshot,
		Cfg:        cfg,
		Logger:     logger.With().Str("component", "agent_loop").Logger(),
		RunID:      uuid.NewString(),
	}
}

// runState is the per-run mutable state (spec.md §3, AgentState). It is
// owned exclusively by Run and discarded when the run ends.
type runState struct {
	stepIdx            int
	prevFrame          []byte
	prevHash           [32]byte
	hasPrevHash        bool
	lastActionsBrief   string
	lastPublishedMtime int64
	infoKind           InfoKind
}

// Run executes the perception-plan-act loop for instruction until
// completion, a stop condition, or the overall timeout.
func (l *AgentLoop) Run(ctx context.Context, instruction string) string {
	start := time.Now()
	st := &runState{infoKind: ClassifyInstruction(instruction)}

	if l.Cfg.DoReplug && l.Gadget != nil {
		l.Gadget.Rebind()
		if !l.Gadget.WaitConfigured(ctx, l.Cfg.FreshnessWait) {
			l.Logger.Warn().Msg("gadget UDC did not report configured before timeout")
		}
	}

	l.waitForFreshFrame(st)

	for st.stepIdx = 1; st.stepIdx <= l.Cfg.MaxSteps; st.stepIdx++ {
		if l.stopRequested() {
			return "Stopped: stop sentinel present"
		}
		if time.Since(start) > l.Cfg.OverallTimeout {
			return fmt.Sprintf("Timeout after %.1fs", l.Cfg.OverallTimeout.Seconds())
		}

		note := l.waitForNewerFrame(st, l.Cfg.PrePlanFrameTimeout)

		frame, err := l.Snapshot.Read()
		if err != nil {
			l.Logger.Warn().Err(err).Msg("failed to read latest frame")
			time.Sleep(l.Cfg.StepSleep)
			continue
		}

		hash := sha256.Sum256(frame)
		screenUnchanged := st.hasPrevHash && hash == st.prevHash
		if screenUnchanged {
			note = appendNote(note, "screen unchanged")
		}

		plan, err := l.planWithRetry(ctx, instruction, frame, st, note)
		if err != nil {
			return fmt.Sprintf("Planner error: %v", err)
		}

		actions := l.Normalizer.Normalize(plan.Actions)
		actions = l.applyAntiLoop(actions, st, screenUnchanged)
		actions = l.applyCompletionGating(actions, st)

		if l.Cfg.Interactive && l.Confirmer != nil && !l.Confirmer.Confirm(actions) {
			return "Stopped by user (confirm)"
		}

		var inputRan bool
		var done bool
		var summary string
		for _, a := range actions {
			if a.Type != ActionWait {
				inputRan = true
			}
			res, err := l.Executor.Execute(a)
			if err != nil {
				l.Logger.Warn().Err(err).Str("action", a.Brief()).Msg("action execution failed")
				continue
			}
			if res.Warning != "" {
				l.Logger.Warn().Str("action", a.Brief()).Msg(res.Warning)
			}
			if res.Done {
				done = true
				summary = res.Summary
				break
			}
		}
		if done {
			return summary
		}

		if inputRan {
			l.waitForNewerFrame(st, l.Cfg.PostActionFrameTimeout)
		}

		st.prevFrame = frame
		st.prevHash = hash
		st.hasPrevHash = true
		st.lastActionsBrief = briefOf(actions)
		time.Sleep(l.Cfg.StepSleep)
	}

	return fmt.Sprintf("Stopped after max steps (%d)", l.Cfg.MaxSteps)
}

func (l *AgentLoop) stopRequested() bool {
	if l.StopSignal != nil {
		return l.StopSignal.Triggered()
	}
	if l.Cfg.StopFilePath == "" {
		return false
	}
	_, err := os.Stat(l.Cfg.StopFilePath)
	return err == nil
}

// waitForFreshFrame implements the pre-run freshness check: if the
// snapshot's mtime is older than FreshnessThreshold, wait up to
// FreshnessWait for a newer one.
func (l *AgentLoop) waitForFreshFrame(st *runState) {
	mtime, err := l.Snapshot.ModTime()
	if err != nil {
		return
	}
	if time.Since(time.Unix(0, mtime)) <= l.Cfg.FreshnessThreshold {
		st.lastPublishedMtime = mtime
		return
	}
	deadline := time.Now().Add(l.Cfg.FreshnessWait)
	for time.Now().Before(deadline) {
		if m, err := l.Snapshot.ModTime(); err == nil && m != mtime {
			st.lastPublishedMtime = m
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	st.lastPublishedMtime = mtime
}

// waitForNewerFrame polls for a snapshot mtime newer than
// lastPublishedMtime, up to timeout, returning a note to attach to the
// planner context if none arrived.
func (l *AgentLoop) waitForNewerFrame(st *runState, timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		m, err := l.Snapshot.ModTime()
		if err == nil && m > st.lastPublishedMtime {
			st.lastPublishedMtime = m
			return ""
		}
		time.Sleep(50 * time.Millisecond)
	}
	return "frame did not update"
}

func appendNote(note, more string) string {
	if note == "" {
		return more
	}
	return note + "; " + more
}

func (l *AgentLoop) planWithRetry(ctx context.Context, instruction string, frame []byte, st *runState, note string) (Plan, error) {
	var lastErr error
	for attempt := 0; attempt < l.Cfg.MaxPlanAttempts; attempt++ {
		req := PlanRequest{
			Instruction:      instruction,
			CurrentJPEG:      frame,
			PreviousJPEG:     st.prevFrame,
			LastActionsBrief: st.lastActionsBrief,
			StepIndex:        st.stepIdx,
			MaxSteps:         l.Cfg.MaxSteps,
			Note:             note,
			Today:            time.Now().Format("2006-01-02"),
			AllowDanger:      l.Cfg.AllowDanger,
		}
		raw, err := l.Planner.Plan(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		plan, err := l.Validator.Parse(raw)
		if err != nil {
			lastErr = err
			continue
		}
		return plan, nil
	}
	return Plan{}, fmt.Errorf("planner produced no valid plan after %d attempts: %w", l.Cfg.MaxPlanAttempts, lastErr)
}

// applyAntiLoop implements spec.md §4.11 step 5: if the screen is
// unchanged, the plan is only keys/waits/done, it contains an Enter, and
// the previous brief already contained key(enter), replace the whole
// plan with Esc + a settle wait.
func (l *AgentLoop) applyAntiLoop(actions []Action, st *runState, screenUnchanged bool) []Action {
	if !screenUnchanged {
		return actions
	}
	onlyBenign := true
	hasEnter := false
	for _, a := range actions {
		switch a.Type {
		case ActionKey, ActionWait, ActionDone:
		default:
			onlyBenign = false
		}
		if isEnterKey(a) {
			hasEnter = true
		}
	}
	if onlyBenign && hasEnter && containsEnterBrief(st.lastActionsBrief) {
		return []Action{
			{Type: ActionKey, Key: "esc"},
			{Type: ActionWait, Ms: 700},
		}
	}
	return actions
}

func containsEnterBrief(brief string) bool {
	return strings.Contains(brief, "key(enter)")
}

// applyCompletionGating implements spec.md §4.11 step 6.
func (l *AgentLoop) applyCompletionGating(actions []Action, st *runState) []Action {
	doneIdx := -1
	for i, a := range actions {
		if a.Type == ActionDone {
			doneIdx = i
			break
		}
	}
	if doneIdx < 0 {
		return actions
	}

	strip := false
	var fallback Action

	if st.stepIdx < l.Cfg.MinStepsBeforeDone {
		strip = true
		fallback = Action{Type: ActionWait, Ms: 1200}
	} else if st.infoKind != InfoKindNone && !SummarySufficient(st.infoKind, actions[doneIdx].Summary) {
		strip = true
		fallback = Action{Type: ActionWait, Ms: 1800}
	} else if st.infoKind == InfoKindNone {
		// An uninferred instruction still requires a non-empty summary
		// to satisfy the milestone-phrase check in SummarySufficient.
		if !SummarySufficient(InfoKindNone, actions[doneIdx].Summary) {
			strip = true
			fallback = Action{Type: ActionWait, Ms: 1800}
		}
	}

	if !strip {
		return actions
	}

	out := make([]Action, 0, len(actions))
	out = append(out, actions[:doneIdx]...)
	out = append(out, actions[doneIdx+1:]...)
	if len(out) == 0 {
		out = []Action{fallback}
	}
	return out
}

func briefOf(actions []Action) string {
	s := ""
	for i, a := range actions {
		if i > 0 {
			s += ","
		}
		s += a.Brief()
	}
	return s
}
