package agent

import "strings"

// NormalizeConfig holds the tunable timings and caps used by the
// normalization pipeline (spec.md §4.10).
type NormalizeConfig struct {
	TypeToEnterWaitMs    int
	AppLaunchSettleMs    int
	SearchSubmitSettleMs int
	MaxActionsPerStep    int
}

// DefaultNormalizeConfig returns the defaults named in spec.md §4.10.
func DefaultNormalizeConfig() NormalizeConfig {
	return NormalizeConfig{
		TypeToEnterWaitMs:    50,
		AppLaunchSettleMs:    1000,
		SearchSubmitSettleMs: 1500,
		MaxActionsPerStep:    5,
	}
}

var guiModifierNames = map[string]bool{
	"command": true, "cmd": true, "gui": true,
	"win": true, "super": true, "meta": true,
}

var launcherCombos = map[string]bool{
	"command+space": true, "win+r": true, "alt+f2": true,
}

var addressBarCombos = map[string]bool{
	"ctrl+l": true, "command+l": true, "alt+d": true,
}

// ActionNormalizer (C11) rewrites common planner patterns and inserts
// settle waits before the plan reaches validation and execution.
type ActionNormalizer struct {
	cfg NormalizeConfig
}

// NewActionNormalizer returns a normalizer using cfg.
func NewActionNormalizer(cfg NormalizeConfig) *ActionNormalizer {
	return &ActionNormalizer{cfg: cfg}
}

// Normalize applies, in order: modifier-then-space coalescing,
// modifier-then-type promotion, pre-enter settle insertion, post-enter
// settle floor, and the trailing-Wait-preserving action cap. It is
// idempotent (L2): re-applying it to its own output is a no-op.
func (n *ActionNormalizer) Normalize(actions []Action) []Action {
	actions = coalesceModifierSpace(actions)
	actions = promoteModifierType(actions)
	actions = insertPreEnterSettle(actions, n.cfg.TypeToEnterWaitMs)
	actions = applyPostEnterSettleFloor(actions, n.cfg.AppLaunchSettleMs, n.cfg.SearchSubmitSettleMs)
	actions = capActions(actions, n.cfg.MaxActionsPerStep)
	return actions
}

func isBareGUIModifierKey(a Action) (mod string, ok bool) {
	if a.Type != ActionKey {
		return "", false
	}
	key := strings.ToLower(strings.TrimSpace(a.Key))
	if guiModifierNames[key] {
		return key, true
	}
	return "", false
}

func isLiteralSpaceKey(a Action) bool {
	if a.Type != ActionKey {
		return false
	}
	key := strings.TrimSpace(a.Key)
	return key == " " || strings.ToLower(key) == "space"
}

// coalesceModifierSpace is stage 1: Key{mod} followed by Key{space}
// becomes a single Key{"mod+space"}.
func coalesceModifierSpace(actions []Action) []Action {
	out := make([]Action, 0, len(actions))
	i := 0
	for i < len(actions) {
		mod, isMod := isBareGUIModifierKey(actions[i])
		if isMod && i+1 < len(actions) && isLiteralSpaceKey(actions[i+1]) {
			out = append(out, Action{Type: ActionKey, Key: mod + "+space"})
			i += 2
			continue
		}
		out = append(out, actions[i])
		i++
	}
	return out
}

// promoteModifierType is stage 2: a bare GUI modifier followed
// (optionally across one Wait) by TypeText is promoted to Key{"mod+space"};
// the TypeText (and any intervening Wait) keep their position.
func promoteModifierType(actions []Action) []Action {
	out := make([]Action, 0, len(actions))
	i := 0
	for i < len(actions) {
		mod, isMod := isBareGUIModifierKey(actions[i])
		if isMod {
			j := i + 1
			if j < len(actions) && actions[j].Type == ActionWait {
				j++
			}
			if j < len(actions) && actions[j].Type == ActionTypeText {
				out = append(out, Action{Type: ActionKey, Key: mod + "+space"})
				i++
				continue
			}
		}
		out = append(out, actions[i])
		i++
	}
	return out
}

func isEnterKey(a Action) bool {
	return a.Type == ActionKey && strings.EqualFold(strings.TrimSpace(a.Key), "enter")
}

// insertPreEnterSettle is stage 3: TypeText immediately followed by
// Key{enter} gets a Wait inserted between them.
func insertPreEnterSettle(actions []Action, waitMs int) []Action {
	out := make([]Action, 0, len(actions)+1)
	for i, a := range actions {
		out = append(out, a)
		if a.Type == ActionTypeText && i+1 < len(actions) && isEnterKey(actions[i+1]) {
			out = append(out, Action{Type: ActionWait, Ms: waitMs})
		}
	}
	return out
}

// applyPostEnterSettleFloor is stage 4: when the plan contains a
// launcher or address-bar combo, the last Enter is followed by a wait of
// at least the matching settle floor.
func applyPostEnterSettleFloor(actions []Action, launchMs, submitMs int) []Action {
	floor := 0
	for _, a := range actions {
		if a.Type != ActionKey {
			continue
		}
		combo := strings.ToLower(strings.TrimSpace(a.Key))
		if launcherCombos[combo] && launchMs > floor {
			floor = launchMs
		}
		if addressBarCombos[combo] && submitMs > floor {
			floor = submitMs
		}
	}
	if floor == 0 {
		return actions
	}

	lastEnter := -1
	for i, a := range actions {
		if isEnterKey(a) {
			lastEnter = i
		}
	}
	if lastEnter < 0 {
		return actions
	}

	out := make([]Action, 0, len(actions)+1)
	out = append(out, actions[:lastEnter+1]...)
	if lastEnter+1 < len(actions) && actions[lastEnter+1].Type == ActionWait {
		w := actions[lastEnter+1]
		if w.Ms < floor {
			w.Ms = floor
		}
		out = append(out, w)
		out = append(out, actions[lastEnter+2:]...)
	} else {
		out = append(out, Action{Type: ActionWait, Ms: floor})
		out = append(out, actions[lastEnter+1:]...)
	}
	return out
}

// capActions is stage 5: truncate to max actions, preserving a trailing
// Wait if present.
func capActions(actions []Action, max int) []Action {
	if len(actions) <= max {
		return actions
	}
	if actions[len(actions)-1].Type == ActionWait {
		out := make([]Action, 0, max)
		out = append(out, actions[:max-1]...)
		out = append(out, actions[len(actions)-1])
		return out
	}
	return actions[:max]
}
