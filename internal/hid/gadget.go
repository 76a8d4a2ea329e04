package hid

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSettle is the pause between unbinding and rebinding the UDC
// during a soft re-enumeration (spec.md §4.5).
const DefaultSettle = 1 * time.Second

// DefaultUDCPollInterval is how often WaitConfigured polls the state
// file.
const DefaultUDCPollInterval = 50 * time.Millisecond

// StateConfigured is the UDC state string observed once the host has
// enumerated the gadget.
const StateConfigured = "configured"

// GadgetControl (C5) binds/unbinds/re-enumerates the USB device
// controller via configfs.
type GadgetControl struct {
	UDCClassPath   string
	GadgetUDCPath  string
	Settle         time.Duration
	PollInterval   time.Duration
	logger         zerolog.Logger
	isPrivilegedFn func() bool
}

// NewGadgetControl returns a GadgetControl for the gadget named
// gadgetName, using the standard configfs/sysfs layout.
func NewGadgetControl(gadgetName string, logger zerolog.Logger) *GadgetControl {
	return &GadgetControl{
		UDCClassPath:   "/sys/class/udc",
		GadgetUDCPath:  filepath.Join("/sys/kernel/config/usb_gadget", gadgetName, "UDC"),
		Settle:         DefaultSettle,
		PollInterval:   DefaultUDCPollInterval,
		logger:         logger.With().Str("component", "gadget_control").Logger(),
		isPrivilegedFn: isRoot,
	}
}

func isRoot() bool {
	return os.Geteuid() == 0
}

// UDCName returns the name of the sole registered UDC, matching most
// single-board setups which expose exactly one.
func (g *GadgetControl) UDCName() (string, error) {
	entries, err := os.ReadDir(g.UDCClassPath)
	if err != nil {
		return "", fmt.Errorf("hid: read udc class dir: %w", err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("hid: no UDC registered under %s", g.UDCClassPath)
	}
	return entries[0].Name(), nil
}

// UDCState reads the controller's state file (e.g. "configured",
// "not attached").
func (g *GadgetControl) UDCState() (string, error) {
	name, err := g.UDCName()
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(filepath.Join(g.UDCClassPath, name, "state"))
	if err != nil {
		return "", fmt.Errorf("hid: read udc state: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// WaitConfigured polls UDCState until it reports "configured" or timeout
// elapses, returning false on timeout rather than an error.
func (g *GadgetControl) WaitConfigured(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		if state, err := g.UDCState(); err == nil && state == StateConfigured {
			return true
		}
		time.Sleep(g.PollInterval)
	}
	return false
}

// Rebind performs a soft USB re-enumeration: unbind the gadget by
// writing an empty string to its UDC file, settle, then rebind by
// writing the discovered UDC name back. It requires root; without it,
// Rebind logs a warning and no-ops rather than failing the run
// (spec.md §4.5, §7 "Privilege denied").
func (g *GadgetControl) Rebind() {
	if !g.isPrivilegedFn() {
		g.logger.Warn().Msg("udc rebind requires root, skipping")
		return
	}

	name, err := g.UDCName()
	if err != nil {
		g.logger.Warn().Err(err).Msg("failed to discover UDC, skipping rebind")
		return
	}

	g.logger.Info().Str("udc", name).Msg("soft USB replug: unbind -> bind")

	if err := os.WriteFile(g.GadgetUDCPath, []byte(""), 0o200); err != nil {
		g.logger.Warn().Err(err).Str("path", g.GadgetUDCPath).Msg("failed to unbind UDC")
		return
	}
	time.Sleep(g.Settle)

	if err := os.WriteFile(g.GadgetUDCPath, []byte(name), 0o200); err != nil {
		g.logger.Warn().Err(err).Str("path", g.GadgetUDCPath).Msg("failed to bind UDC")
		return
	}
	time.Sleep(g.Settle)
}
