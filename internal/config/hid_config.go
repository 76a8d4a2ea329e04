package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// HIDConfig configures the USB-HID gadget device paths and the
// absolute-mouse calibration kaivm-agent injects input through.
// Grounded on original_source/kaivm/hid/udc.py's environment-derived
// device paths and kaivm/calibrate.py's calibration string format.
type HIDConfig struct {
	KeyboardDevice        string `envconfig:"KEYBOARD_DEVICE" default:"/dev/hidg0"`
	RelativeMouseDevice   string `envconfig:"RELATIVE_MOUSE_DEVICE" default:"/dev/hidg1"`
	AbsoluteMouseDevice   string `envconfig:"ABSOLUTE_MOUSE_DEVICE" default:"/dev/hidg2"`

	GadgetName string `envconfig:"GADGET_NAME" default:"kaivm"`

	// Calibration is "sx,sy,ox,oy" as produced by hid.Calibration.String,
	// or empty for hid.IdentityCalibration.
	Calibration string `envconfig:"MOUSE_CALIBRATION"`

	IOTimeoutSeconds float64 `envconfig:"IO_TIMEOUT_SECONDS" default:"5"`
}

// IOTimeout converts IOTimeoutSeconds into a time.Duration for
// hid.Endpoint.
func (c HIDConfig) IOTimeout() time.Duration { return secondsToDuration(c.IOTimeoutSeconds) }

// LoadHIDConfig loads HIDConfig from the environment. Calibration
// parsing is left to the caller (internal/hid.ParseCalibration) since
// an empty string is a valid "use identity" value, not an error here.
func LoadHIDConfig() (HIDConfig, error) {
	var cfg HIDConfig
	if err := envconfig.Process("KAIVM", &cfg); err != nil {
		return HIDConfig{}, err
	}
	return cfg, nil
}
