package hid

import (
	"fmt"
	"time"
)

const interChunkDelay = 2 * time.Millisecond
const moveSettleDelay = 50 * time.Millisecond

// RelativeMouse (the RelativeMouse variant of C8) drives the 3-byte boot
// mouse endpoint, chunking large moves into [-127, 127] steps.
type RelativeMouse struct {
	endpoint *Endpoint
	HoldTime time.Duration
}

// NewRelativeMouse returns a relative-mouse driver writing through endpoint.
func NewRelativeMouse(endpoint *Endpoint) *RelativeMouse {
	return &RelativeMouse{endpoint: endpoint, HoldTime: 60 * time.Millisecond}
}

// Move sends dx, dy as a sequence of reports each within [-127, 127],
// sleeping briefly between non-final chunks so the host can process each
// report (P6: the sum of emitted per-report deltas equals the input).
func (m *RelativeMouse) Move(dx, dy int) error {
	for dx != 0 || dy != 0 {
		step := func(v int) int {
			if v > 127 {
				return 127
			}
			if v < -127 {
				return -127
			}
			return v
		}
		stepX, stepY := step(dx), step(dy)

		if err := m.endpoint.Write(PackRelativeMouseReport(0, stepX, stepY)); err != nil {
			return err
		}

		dx -= stepX
		dy -= stepY

		if dx != 0 || dy != 0 {
			time.Sleep(interChunkDelay)
		}
	}
	return nil
}

// Click presses and releases button with no movement.
func (m *RelativeMouse) Click(button string) error {
	mask, err := ButtonMask(button)
	if err != nil {
		return err
	}
	if err := m.endpoint.Write(PackRelativeMouseReport(mask, 0, 0)); err != nil {
		return err
	}
	time.Sleep(m.HoldTime)
	return m.endpoint.Write(PackRelativeMouseReport(0, 0, 0))
}

// Calibration is the affine map from normalized screen coordinates to
// device-normalized coordinates: d = n*scale + offset (spec.md §3/§4.8).
type Calibration struct {
	SX, SY float64
	OX, OY float64
}

// IdentityCalibration is the no-op calibration used when no calibration
// string is configured.
func IdentityCalibration() Calibration {
	return Calibration{SX: 1, SY: 1, OX: 0, OY: 0}
}

// String renders the calibration in the persisted "sx,sy,ox,oy" format.
func (c Calibration) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", c.SX, c.SY, c.OX, c.OY)
}

// ParseCalibration parses the "sx,sy,ox,oy" text form.
func ParseCalibration(s string) (Calibration, error) {
	var c Calibration
	n, err := fmt.Sscanf(s, "%g,%g,%g,%g", &c.SX, &c.SY, &c.OX, &c.OY)
	if err != nil || n != 4 {
		return Calibration{}, fmt.Errorf("hid: malformed calibration %q", s)
	}
	return c, nil
}

// DeriveCalibration solves the least-squares affine fit hid = scale*screen
// + offset independently per axis, given at least two observed
// (screen_normalized, hid_normalized) pairs per axis (spec.md §4.8,
// auxiliary calibration tool).
func DeriveCalibration(screenX, hidX, screenY, hidY []float64) (Calibration, error) {
	sx, ox, err := linearFit(screenX, hidX)
	if err != nil {
		return Calibration{}, fmt.Errorf("hid: derive X calibration: %w", err)
	}
	sy, oy, err := linearFit(screenY, hidY)
	if err != nil {
		return Calibration{}, fmt.Errorf("hid: derive Y calibration: %w", err)
	}
	return Calibration{SX: sx, SY: sy, OX: ox, OY: oy}, nil
}

// linearFit solves y = scale*x + offset by ordinary least squares.
func linearFit(x, y []float64) (scale, offset float64, err error) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, 0, fmt.Errorf("need at least 2 matching samples, got %d/%d", len(x), len(y))
	}
	n := float64(len(x))
	var sumX, sumY, sumXY, sumXX float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumXX += x[i] * x[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0, fmt.Errorf("degenerate samples (zero variance in x)")
	}
	scale = (n*sumXY - sumX*sumY) / denom
	offset = (sumY - scale*sumX) / n
	return scale, offset, nil
}

// AbsoluteMouse (C8) maps normalized planner coordinates through a
// Calibration and emits 16-bit absolute reports.
type AbsoluteMouse struct {
	endpoint *Endpoint
	cal      Calibration

	MoveSettle time.Duration
	HoldTime   time.Duration

	lastX, lastY int
	hasLast      bool
}

// NewAbsoluteMouse returns an absolute-mouse driver using cal to map
// normalized planner coordinates onto the device's 0..32767 range.
func NewAbsoluteMouse(endpoint *Endpoint, cal Calibration) *AbsoluteMouse {
	return &AbsoluteMouse{
		endpoint:   endpoint,
		cal:        cal,
		MoveSettle: moveSettleDelay,
		HoldTime:   60 * time.Millisecond,
	}
}

// deviceCoords maps planner coordinates nx, ny in [0, 1000] to device
// coordinates in [0, 32767] through the calibration (spec.md §4.8),
// truncating the scaled value: the center 500 maps to 16383 = 0x3FFF.
func (a *AbsoluteMouse) deviceCoords(nx, ny float64) (int, int) {
	n := nx / 1000
	m := ny / 1000
	dx := clampFloat(n*a.cal.SX+a.cal.OX, 0, 1)
	dy := clampFloat(m*a.cal.SY+a.cal.OY, 0, 1)
	return int(dx * 32767), int(dy * 32767)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Move sends a move report (buttons=0) to (nx, ny) and remembers the
// emitted device coordinates for LastCursor/click-without-coords reuse.
func (a *AbsoluteMouse) Move(nx, ny float64) error {
	x, y := a.deviceCoords(nx, ny)
	if err := a.endpoint.Write(PackAbsoluteMouseReport(0, x, y)); err != nil {
		return err
	}
	a.lastX, a.lastY = x, y
	a.hasLast = true
	return nil
}

// LastCursor returns the device coordinates of the last emitted move or
// click, for MouseClick calls that omit explicit coordinates.
func (a *AbsoluteMouse) LastCursor() (x, y int, ok bool) {
	return a.lastX, a.lastY, a.hasLast
}

// Click moves to (nx, ny), settles, presses button, holds, then releases
// with the position preserved (spec.md §4.8 click sequencing).
func (a *AbsoluteMouse) Click(nx, ny float64, button string) error {
	mask, err := ButtonMask(button)
	if err != nil {
		return err
	}
	x, y := a.deviceCoords(nx, ny)

	if err := a.endpoint.Write(PackAbsoluteMouseReport(0, x, y)); err != nil {
		return err
	}
	time.Sleep(a.MoveSettle)

	if err := a.endpoint.Write(PackAbsoluteMouseReport(mask, x, y)); err != nil {
		return err
	}
	time.Sleep(a.HoldTime)

	if err := a.endpoint.Write(PackAbsoluteMouseReport(0, x, y)); err != nil {
		return err
	}
	a.lastX, a.lastY = x, y
	a.hasLast = true
	return nil
}
