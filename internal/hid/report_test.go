package hid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackKeyboardReportLength(t *testing.T) {
	rep := PackKeyboardReport(0x01, []byte{0x0F})
	assert.Len(t, rep, KeyboardReportLen)
}

func TestPackKeyboardReportTruncatesToSixKeys(t *testing.T) {
	rep := PackKeyboardReport(0, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	assert.Equal(t, []byte{0, 0, 1, 2, 3, 4, 5, 6}, rep)
}

func TestPackRelativeMouseReportLength(t *testing.T) {
	rep := PackRelativeMouseReport(1, 10, -10)
	assert.Len(t, rep, RelativeMouseReportLen)
}

func TestPackRelativeMouseReportClampsToI8(t *testing.T) {
	rep := PackRelativeMouseReport(0, 200, -200)
	assert.Equal(t, byte(127), rep[1])
	assert.Equal(t, byte(int8(-127)), rep[2])
}

func TestPackAbsoluteMouseReportLength(t *testing.T) {
	rep := PackAbsoluteMouseReport(0, 0, 0)
	assert.Len(t, rep, AbsoluteMouseReportLen)
}

func TestPackAbsoluteMouseReportCorners(t *testing.T) {
	// Scenario 4 from the end-to-end properties: identity calibration,
	// center click at (500,500) -> device coordinate 0.5*32767 = 16383.5,
	// truncated to 16383 = 0x3FFF.
	rep := PackAbsoluteMouseReport(0, 16383, 16383)
	assert.Equal(t, []byte{0x00, 0xFF, 0x3F, 0xFF, 0x3F}, rep)
}

func TestPackAbsoluteMouseReportClamps(t *testing.T) {
	rep := PackAbsoluteMouseReport(0, -5, 99999)
	assert.Equal(t, byte(0), rep[1])
	assert.Equal(t, byte(0), rep[2])
	assert.Equal(t, byte(0xFF), rep[3])
	assert.Equal(t, byte(0x7F), rep[4])
}

func TestButtonMask(t *testing.T) {
	tests := []struct {
		name    string
		button  string
		want    byte
		wantErr bool
	}{
		{"left", "left", ButtonLeft, false},
		{"right", "right", ButtonRight, false},
		{"middle", "middle", ButtonMiddle, false},
		{"unknown", "scroll", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ButtonMask(tt.button)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
