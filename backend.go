package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"gregoryjjb/shiftbank/gpio"
	"gregoryjjb/shiftbank/shiftreg"
)

// OpenLines returns the GPIO controller selected by config, or nil for the
// simulated bank which never touches lines.
func OpenLines(config *Config, fsys afero.Fs) (gpio.Controller, error) {
	role, err := config.Role()
	if err != nil {
		return nil, err
	}
	if role == shiftreg.Simulated {
		return nil, nil
	}

	var lines gpio.Controller
	switch config.Backend() {
	case BackendSysfs:
		lines = gpio.NewSysfs(fsys, config.SysfsRoot())
	case BackendCdev:
		lines = gpio.NewCdev(config.GPIOChip())
	case BackendRpio:
		lines = gpio.NewRpio()
	case BackendDryRun:
		return gpio.NewLogging(nil, log.Logger), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", config.Backend())
	}

	if config.LogLevel() <= zerolog.TraceLevel {
		lines = gpio.NewLogging(lines, log.Logger)
	}

	return lines, nil
}

// NewRegister builds the register for the configured bank on lines.
func NewRegister(config *Config, lines gpio.Controller) (*shiftreg.ShiftRegister, error) {
	role, err := config.Role()
	if err != nil {
		return nil, err
	}

	sr, err := shiftreg.New(role, config.Bank(role).Pinout(), lines)
	if err != nil {
		return nil, err
	}
	sr.Hold = config.Hold()
	sr.StepDelay = config.StepDelay()

	log.Debug().
		Str("bank", role.String()).
		Str("backend", config.Backend()).
		Interface("pinout", sr.Pinout()).
		Msg("Register ready")

	return sr, nil
}
