package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKeyboard struct {
	hotkeys  []string
	typed    []string
	hotkeyOK map[string]bool
}

func (f *fakeKeyboard) TypeText(text string) ([]rune, error) {
	f.typed = append(f.typed, text)
	return nil, nil
}

func (f *fakeKeyboard) SendHotkey(combo string) (bool, error) {
	f.hotkeys = append(f.hotkeys, combo)
	if f.hotkeyOK == nil {
		return true, nil
	}
	return f.hotkeyOK[combo], nil
}

type fakeRelMouse struct {
	moves  [][2]int
	clicks []string
}

func (f *fakeRelMouse) Move(dx, dy int) error {
	f.moves = append(f.moves, [2]int{dx, dy})
	return nil
}

func (f *fakeRelMouse) Click(button string) error {
	f.clicks = append(f.clicks, button)
	return nil
}

type fakeAbsMouse struct {
	moves   [][2]float64
	clicks  []string
	lastX   int
	lastY   int
	hasLast bool
}

func (f *fakeAbsMouse) Move(nx, ny float64) error {
	f.moves = append(f.moves, [2]float64{nx, ny})
	f.lastX, f.lastY = int(nx/1000*32767), int(ny/1000*32767)
	f.hasLast = true
	return nil
}

func (f *fakeAbsMouse) Click(nx, ny float64, button string) error {
	f.clicks = append(f.clicks, button)
	f.lastX, f.lastY = int(nx/1000*32767), int(ny/1000*32767)
	f.hasLast = true
	return nil
}

func (f *fakeAbsMouse) LastCursor() (int, int, bool) {
	return f.lastX, f.lastY, f.hasLast
}

func newTestExecutor() (*ActionExecutor, *fakeKeyboard, *fakeRelMouse, *fakeAbsMouse) {
	kbd := &fakeKeyboard{}
	rel := &fakeRelMouse{}
	abs := &fakeAbsMouse{}
	return &ActionExecutor{Keyboard: kbd, RelMouse: rel, AbsMouse: abs}, kbd, rel, abs
}

func TestExecutorWait(t *testing.T) {
	e, _, _, _ := newTestExecutor()
	res, err := e.Execute(Action{Type: ActionWait, Ms: 10})
	require.NoError(t, err)
	assert.False(t, res.Done)
}

func TestExecutorMouseMoveRel(t *testing.T) {
	e, _, rel, _ := newTestExecutor()
	_, err := e.Execute(Action{Type: ActionMouseMoveRel, Dx: 10, Dy: -5})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{10, -5}}, rel.moves)
}

func TestExecutorTypeTextRefusesDangerousWithoutAllowDanger(t *testing.T) {
	e, kbd, _, _ := newTestExecutor()
	res, err := e.Execute(Action{Type: ActionTypeText, Text: "sudo shutdown now"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warning)
	assert.Empty(t, kbd.typed)
}

func TestExecutorTypeTextAllowsDangerousWhenEnabled(t *testing.T) {
	e, kbd, _, _ := newTestExecutor()
	e.AllowDanger = true
	res, err := e.Execute(Action{Type: ActionTypeText, Text: "sudo shutdown now"})
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
	assert.Equal(t, []string{"sudo shutdown now"}, kbd.typed)
}

func TestExecutorKeyHotkeyPath(t *testing.T) {
	e, kbd, _, _ := newTestExecutor()
	res, err := e.Execute(Action{Type: ActionKey, Key: "ctrl+l"})
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
	assert.Equal(t, []string{"ctrl+l"}, kbd.hotkeys)
}

func TestExecutorKeyAliasFallback(t *testing.T) {
	e, kbd, _, _ := newTestExecutor()
	kbd.hotkeyOK = map[string]bool{} // every hotkey attempt fails

	res, err := e.Execute(Action{Type: ActionKey, Key: "enter"})
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
	assert.Equal(t, []string{"\n"}, kbd.typed)
}

func TestExecutorKeySingleCharFallback(t *testing.T) {
	e, kbd, _, _ := newTestExecutor()
	kbd.hotkeyOK = map[string]bool{}

	res, err := e.Execute(Action{Type: ActionKey, Key: "q"})
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
	assert.Equal(t, []string{"q"}, kbd.typed)
}

func TestExecutorKeyUnknownCombo(t *testing.T) {
	e, kbd, _, _ := newTestExecutor()
	kbd.hotkeyOK = map[string]bool{}

	res, err := e.Execute(Action{Type: ActionKey, Key: "notreal"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warning)
}

func TestExecutorDryRunSkipsHIDDispatch(t *testing.T) {
	e, kbd, rel, _ := newTestExecutor()
	e.DryRun = true

	_, err := e.Execute(Action{Type: ActionMouseMoveRel, Dx: 10, Dy: -5})
	require.NoError(t, err)
	assert.Empty(t, rel.moves)

	res, err := e.Execute(Action{Type: ActionKey, Key: "enter"})
	require.NoError(t, err)
	assert.Empty(t, kbd.typed)
	assert.False(t, res.Done)
}

func TestExecutorDryRunStillTerminatesOnDone(t *testing.T) {
	e, _, _, _ := newTestExecutor()
	e.DryRun = true

	res, err := e.Execute(Action{Type: ActionDone, Summary: "all done"})
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, "all done", res.Summary)
}

func TestExecutorDoneTerminates(t *testing.T) {
	e, _, _, _ := newTestExecutor()
	res, err := e.Execute(Action{Type: ActionDone, Summary: "all done"})
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, "all done", res.Summary)
}
