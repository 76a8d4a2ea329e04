package hid

import (
	"strings"
	"time"
)

// Modifier bits for the USB HID boot keyboard (spec.md §4.7).
const (
	ModLCtrl  byte = 0x01
	ModLShift byte = 0x02
	ModLAlt   byte = 0x04
	ModLGUI   byte = 0x08
)

type keyMapping struct {
	mod  byte
	code byte
}

var asciiMap = map[rune]keyMapping{}

var namedKeys = map[string]byte{
	"ENTER":     0x28,
	"ESC":       0x29,
	"ESCAPE":    0x29,
	"BACKSPACE": 0x2A,
	"TAB":       0x2B,
	"SPACE":     0x2C,
	"CAPSLOCK":  0x39,
	"LEFT":      0x50,
	"RIGHT":     0x4F,
	"UP":        0x52,
	"DOWN":      0x51,
	"DELETE":    0x4C,
	"HOME":      0x4A,
	"END":       0x4D,
	"PAGEUP":    0x4B,
	"PAGEDOWN":  0x4E,
}

var modNames = map[string]byte{
	"CTRL":    ModLCtrl,
	"CONTROL": ModLCtrl,
	"SHIFT":   ModLShift,
	"ALT":     ModLAlt,
	"GUI":     ModLGUI,
	"WIN":     ModLGUI,
	"WINDOWS": ModLGUI,
	"CMD":     ModLGUI,
	"COMMAND": ModLGUI,
	"SUPER":   ModLGUI,
	"META":    ModLGUI,
}

func init() {
	for i, ch := range "abcdefghijklmnopqrstuvwxyz" {
		asciiMap[ch] = keyMapping{0, byte(0x04 + i)}
	}
	for i, ch := range "ABCDEFGHIJKLMNOPQRSTUVWXYZ" {
		asciiMap[ch] = keyMapping{ModLShift, byte(0x04 + i)}
	}

	digits := "1234567890"
	shifted := "!@#$%^&*()"
	for i := range digits {
		code := byte(0x1E + i)
		asciiMap[rune(digits[i])] = keyMapping{0, code}
		asciiMap[rune(shifted[i])] = keyMapping{ModLShift, code}
	}

	asciiMap[' '] = keyMapping{0, 0x2C}
	asciiMap['\n'] = keyMapping{0, 0x28}
	asciiMap['\t'] = keyMapping{0, 0x2B}

	punct := map[rune]keyMapping{
		'-': {0, 0x2D}, '_': {ModLShift, 0x2D},
		'=': {0, 0x2E}, '+': {ModLShift, 0x2E},
		'[': {0, 0x2F}, '{': {ModLShift, 0x2F},
		']': {0, 0x30}, '}': {ModLShift, 0x30},
		'\\': {0, 0x31}, '|': {ModLShift, 0x31},
		';': {0, 0x33}, ':': {ModLShift, 0x33},
		'\'': {0, 0x34}, '"': {ModLShift, 0x34},
		'`': {0, 0x35}, '~': {ModLShift, 0x35},
		',': {0, 0x36}, '<': {ModLShift, 0x36},
		'.': {0, 0x37}, '>': {ModLShift, 0x37},
		'/': {0, 0x38}, '?': {ModLShift, 0x38},
	}
	for ch, m := range punct {
		asciiMap[ch] = m
	}

	for i := 1; i <= 12; i++ {
		namedKeys["F"+itoa(i)] = byte(0x3A + (i - 1))
	}
}

func itoa(i int) string {
	if i < 10 {
		return string(rune('0' + i))
	}
	return string(rune('0'+i/10)) + string(rune('0'+i%10))
}

// KeyboardMapper (C7) translates ASCII text and named hotkey combos into
// boot-keyboard reports and drives them through an Endpoint.
type KeyboardMapper struct {
	endpoint *Endpoint

	InterKeyDelay  time.Duration
	HotkeyHoldTime time.Duration
}

// NewKeyboardMapper returns a mapper writing through endpoint.
func NewKeyboardMapper(endpoint *Endpoint) *KeyboardMapper {
	return &KeyboardMapper{
		endpoint:       endpoint,
		InterKeyDelay:  5 * time.Millisecond,
		HotkeyHoldTime: 15 * time.Millisecond,
	}
}

// SendReport writes the raw modifier mask and up to six simultaneous
// keys, for use by callers mirroring an externally observed keyboard
// state.
func (k *KeyboardMapper) SendReport(mods byte, keys []byte) error {
	return k.endpoint.Write(PackKeyboardReport(mods, keys))
}

// sendKey emits a press report followed (after hold) by an
// all-zero release report, matching P5 (press/release pairing).
func (k *KeyboardMapper) sendKey(mods, code byte, hold time.Duration) error {
	if err := k.SendReport(mods, []byte{code}); err != nil {
		return err
	}
	time.Sleep(hold)
	return k.SendReport(0, nil)
}

// TypeText sends each mapped character as a press/release pair with a
// short inter-key delay. Unmapped characters are reported via the
// returned skipped slice rather than aborting the whole string.
func (k *KeyboardMapper) TypeText(text string) (skipped []rune, err error) {
	for _, ch := range text {
		m, ok := asciiMap[ch]
		if !ok {
			skipped = append(skipped, ch)
			continue
		}
		if err := k.sendKey(m.mod, m.code, k.HotkeyHoldTime); err != nil {
			return skipped, err
		}
		time.Sleep(k.InterKeyDelay)
	}
	return skipped, nil
}

// SendHotkey parses a "+"/"-"-separated combo (e.g. "ctrl+l",
// "command+space") and emits a single press/release pair with the
// combined modifier mask. It returns false if the combo names no
// non-modifier key (spec.md boundary: a modifier alone is refused).
func (k *KeyboardMapper) SendHotkey(combo string) (bool, error) {
	raw := strings.TrimSpace(combo)
	if raw == "" {
		return false, nil
	}

	parts := splitCombo(raw)
	if len(parts) == 0 {
		return false, nil
	}

	var mod byte
	var keyCode *byte

	for _, p := range parts {
		up := strings.ToUpper(p)
		if p == " " {
			up = "SPACE"
		}

		if m, ok := modNames[up]; ok {
			mod |= m
			continue
		}

		if len(p) == 1 {
			ch := rune(p[0])
			if ch >= 'A' && ch <= 'Z' {
				// Letters in a combo are case-insensitive: "Ctrl+L" is "ctrl+l".
				ch += 'a' - 'A'
			}
			if m, ok := asciiMap[ch]; ok {
				mod |= m.mod
				code := m.code
				keyCode = &code
				continue
			}
		}

		if code, ok := namedKeys[up]; ok {
			c := code
			keyCode = &c
			continue
		}

		return false, nil
	}

	if keyCode == nil {
		return false, nil
	}

	if err := k.sendKey(mod, *keyCode, k.HotkeyHoldTime); err != nil {
		return false, err
	}
	return true, nil
}

func splitCombo(raw string) []string {
	normalized := strings.ReplaceAll(raw, "-", "+")
	parts := strings.Split(normalized, "+")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
