package hid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEndpoint(t *testing.T) (*Endpoint, string) {
	t.Helper()
	dev := filepath.Join(t.TempDir(), "hidg0")
	require.NoError(t, os.WriteFile(dev, nil, 0o644))
	return NewEndpoint(dev, zerolog.Nop()), dev
}

func TestSendHotkeyCtrlL(t *testing.T) {
	ep, dev := newTestEndpoint(t)
	defer ep.Close()
	k := NewKeyboardMapper(ep)

	ok, err := k.SendHotkey("ctrl+l")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := os.ReadFile(dev)
	require.NoError(t, err)

	// Scenario 3: press "01 00 0F 00 00 00 00 00" then release
	// "00 00 00 00 00 00 00 00".
	want := []byte{
		0x01, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	assert.Equal(t, want, got)
}

func TestSendHotkeyCaseInsensitive(t *testing.T) {
	// L1: hotkey parsing is case-insensitive for modifier and named keys.
	for _, combo := range []string{"Ctrl+L", "ctrl+l", "CONTROL+l"} {
		ep, dev := newTestEndpoint(t)
		k := NewKeyboardMapper(ep)

		ok, err := k.SendHotkey(combo)
		require.NoError(t, err)
		assert.True(t, ok, combo)

		got, err := os.ReadFile(dev)
		require.NoError(t, err)
		assert.Equal(t, byte(0x01), got[0], combo)
		assert.Equal(t, byte(0x0F), got[2], combo)
		ep.Close()
	}
}

func TestSendHotkeyRejectsModifierAlone(t *testing.T) {
	ep, _ := newTestEndpoint(t)
	defer ep.Close()
	k := NewKeyboardMapper(ep)

	ok, err := k.SendHotkey("ctrl")
	require.NoError(t, err)
	assert.False(t, ok, "a plan consisting solely of a modifier key must be rejected")
}

func TestSendHotkeyUnknownCombo(t *testing.T) {
	ep, _ := newTestEndpoint(t)
	defer ep.Close()
	k := NewKeyboardMapper(ep)

	ok, err := k.SendHotkey("ctrl+notarealkey")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTypeTextSkipsUnmapped(t *testing.T) {
	ep, dev := newTestEndpoint(t)
	defer ep.Close()
	k := NewKeyboardMapper(ep)
	k.InterKeyDelay = 0
	k.HotkeyHoldTime = 0

	skipped, err := k.TypeText("a☃b")
	require.NoError(t, err)
	assert.Equal(t, []rune{'☃'}, skipped)

	got, err := os.ReadFile(dev)
	require.NoError(t, err)
	// Two characters typed ('a', 'b'), each a press+release pair.
	assert.Len(t, got, 4*KeyboardReportLen)
}
