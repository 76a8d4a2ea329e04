package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// KeyTyper types ASCII text and parses hotkey combos into HID reports.
// Satisfied by *hid.KeyboardMapper.
type KeyTyper interface {
	TypeText(text string) (skipped []rune, err error)
	SendHotkey(combo string) (bool, error)
}

// RelMouse drives relative (chunked) mouse moves and clicks. Satisfied
// by *hid.RelativeMouse.
type RelMouse interface {
	Move(dx, dy int) error
	Click(button string) error
}

// AbsMouse drives normalized absolute mouse moves and clicks, caching
// the last emitted position. Satisfied by *hid.AbsoluteMouse.
type AbsMouse interface {
	Move(nx, ny float64) error
	Click(nx, ny float64, button string) error
	LastCursor() (x, y int, ok bool)
}

// keyAliases maps the alias fallback names to the literal character
// KeyboardMapper.TypeText should send (spec.md §4.11 step 8 key
// fallback chain, grounded on the original runner's KEY_ALIASES).
var keyAliases = map[string]string{
	"ENTER": "\n",
	"TAB":   "\t",
	"SPACE": " ",
}

// ActionExecutor (part of C12) executes one validated, normalized
// Action against the HID layer.
type ActionExecutor struct {
	Keyboard    KeyTyper
	RelMouse    RelMouse
	AbsMouse    AbsMouse
	AllowDanger bool

	// DryRun, when set, logs what would have been sent to HID instead of
	// opening any device — useful for driving the loop against a
	// recorded frame sequence or in integration tests.
	DryRun bool
	Logger *zerolog.Logger
}

// ExecResult reports the outcome of one executed action.
type ExecResult struct {
	Done    bool
	Summary string
	Warning string
}

// Execute runs a (already normalized and validated) Action. Dangerous
// text is refused as a soft result, not an error; HID write failures
// are returned so the loop can log and continue with the next action.
func (e *ActionExecutor) Execute(a Action) (ExecResult, error) {
	if e.DryRun && a.Type != ActionDone {
		if e.Logger != nil {
			e.Logger.Info().Str("action", a.Brief()).Msg("dry-run: skipping HID dispatch")
		}
		return ExecResult{}, nil
	}

	switch a.Type {
	case ActionWait:
		if a.Ms > 0 {
			time.Sleep(time.Duration(a.Ms) * time.Millisecond)
		}
		return ExecResult{}, nil

	case ActionMouseMoveRel:
		if err := e.RelMouse.Move(a.Dx, a.Dy); err != nil {
			return ExecResult{}, err
		}
		return ExecResult{}, nil

	case ActionMouseMoveAbs:
		if err := e.AbsMouse.Move(a.X, a.Y); err != nil {
			return ExecResult{}, err
		}
		return ExecResult{}, nil

	case ActionMouseClick:
		x, y := a.X, a.Y
		if x == 0 && y == 0 {
			if lx, ly, ok := e.AbsMouse.LastCursor(); ok {
				x, y = float64(lx)/32767*1000, float64(ly)/32767*1000
			}
		}
		if err := e.AbsMouse.Click(x, y, a.Button); err != nil {
			return ExecResult{}, err
		}
		return ExecResult{}, nil

	case ActionTypeText:
		if !e.AllowDanger && IsDangerousText(a.Text) {
			return ExecResult{Warning: fmt.Sprintf("refused dangerous type_text: %q", a.Text)}, nil
		}
		skipped, err := e.Keyboard.TypeText(a.Text)
		if err != nil {
			return ExecResult{}, err
		}
		if len(skipped) > 0 {
			return ExecResult{Warning: fmt.Sprintf("skipped %d unmapped characters", len(skipped))}, nil
		}
		return ExecResult{}, nil

	case ActionKey:
		return e.executeKey(a.Key)

	case ActionDone:
		return ExecResult{Done: true, Summary: a.Summary}, nil

	default:
		return ExecResult{Warning: fmt.Sprintf("unsupported action type: %s", a.Type)}, nil
	}
}

// executeKey tries, in order: a hotkey combo, an ENTER/TAB/SPACE alias,
// a single literal character — the fallback chain the original agent's
// key handling used.
func (e *ActionExecutor) executeKey(raw string) (ExecResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ExecResult{Warning: "empty key action"}, nil
	}

	ok, err := e.Keyboard.SendHotkey(raw)
	if err != nil {
		return ExecResult{}, err
	}
	if ok {
		return ExecResult{}, nil
	}

	if lit, isAlias := keyAliases[strings.ToUpper(raw)]; isAlias {
		if _, err := e.Keyboard.TypeText(lit); err != nil {
			return ExecResult{}, err
		}
		return ExecResult{}, nil
	}

	if len(raw) == 1 {
		if _, err := e.Keyboard.TypeText(raw); err != nil {
			return ExecResult{}, err
		}
		return ExecResult{}, nil
	}

	return ExecResult{Warning: fmt.Sprintf("unknown key alias/hotkey: %s", raw)}, nil
}
