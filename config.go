package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"gregoryjjb/shiftbank/gpio"
	"gregoryjjb/shiftbank/shiftreg"
)

const (
	BackendSysfs  = "sysfs"
	BackendCdev   = "cdev"
	BackendRpio   = "rpio"
	BackendDryRun = "dryrun"
)

// Flags are the command line settings that override the config file.
type Flags struct {
	ConfigPath string
	Bank       string
	Backend    string
	Verbose    bool
}

// Duration reads "1s"-style strings from TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// BankConfig is the wiring of one register chain plus how many of its
// outputs are connected.
type BankConfig struct {
	OutputEnable int
	Data         int
	Clock        int
	Latch        int
	Outputs      int
}

func (b BankConfig) Pinout() shiftreg.Pinout {
	return shiftreg.Pinout{
		OutputEnable: b.OutputEnable,
		Data:         b.Data,
		Clock:        b.Clock,
		Latch:        b.Latch,
	}
}

// bankTOML uses pointers so a file can override single lines.
type bankTOML struct {
	OutputEnable *int `toml:"output_enable"`
	Data         *int `toml:"data"`
	Clock        *int `toml:"clock"`
	Latch        *int `toml:"latch"`
	Outputs      *int `toml:"outputs"`
}

type tomlConfig struct {
	Bank      string              `toml:"bank"`
	Backend   string              `toml:"backend"`
	SysfsRoot string              `toml:"sysfs_root"`
	GPIOChip  string              `toml:"gpiochip"`
	LogLevel  string              `toml:"log_level"`
	Hold      *Duration           `toml:"hold"`
	StepDelay *Duration           `toml:"step_delay"`
	Banks     map[string]bankTOML `toml:"banks"`
}

type Config struct {
	path   string
	toml   tomlConfig
	flags  Flags
	getenv func(string) string
	banks  map[shiftreg.Role]BankConfig
}

func defaultBanks() map[shiftreg.Role]BankConfig {
	banks := map[shiftreg.Role]BankConfig{
		shiftreg.Simulated: {Outputs: 8},
	}
	outputs := map[shiftreg.Role]int{
		shiftreg.LedBank:   20,
		shiftreg.RelayBank: 9,
	}
	for role, n := range outputs {
		p, _ := shiftreg.DefaultPinout(role)
		banks[role] = BankConfig{
			OutputEnable: p.OutputEnable,
			Data:         p.Data,
			Clock:        p.Clock,
			Latch:        p.Latch,
			Outputs:      n,
		}
	}
	return banks
}

// NewConfig loads the TOML config file, if any, from fsys. An explicitly
// named file must exist; the default locations are optional.
func NewConfig(fsys HostFS, flags Flags, getenv func(string) string) (*Config, error) {
	c := &Config{
		flags:  flags,
		getenv: getenv,
		banks:  defaultBanks(),
	}

	path, explicit := flags.ConfigPath, true
	if path == "" {
		path = getenv("SHIFTBANK_CONFIG")
	}
	if path == "" {
		explicit = false
		path = findDefaultConfig(fsys)
	}

	if path != "" {
		if err := c.load(fsys, path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func findDefaultConfig(fsys HostFS) string {
	var candidates []string
	if home, err := fsys.HomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "shiftbank.toml"))
	}
	candidates = append(candidates, "/etc/shiftbank.toml")

	for _, p := range candidates {
		if ok, _ := afero.Exists(fsys, p); ok {
			return p
		}
	}
	return ""
}

func (c *Config) load(fsys HostFS, path string) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &c.toml); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	for name, b := range c.toml.Banks {
		role, err := shiftreg.ParseRole(name)
		if err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}

		bank := c.banks[role]
		override := func(dst *int, src *int) {
			if src != nil {
				*dst = *src
			}
		}
		override(&bank.OutputEnable, b.OutputEnable)
		override(&bank.Data, b.Data)
		override(&bank.Clock, b.Clock)
		override(&bank.Latch, b.Latch)
		override(&bank.Outputs, b.Outputs)
		c.banks[role] = bank
	}

	if abs, err := fsys.Abs(path); err == nil {
		path = abs
	}
	c.path = path
	log.Debug().Str("path", path).Msg("Loaded config")

	return nil
}

func (c *Config) validate() error {
	if _, err := c.Role(); err != nil {
		return err
	}

	switch c.Backend() {
	case BackendSysfs, BackendCdev, BackendRpio, BackendDryRun:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend())
	}

	if _, err := zerolog.ParseLevel(c.logLevelName()); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	for role, bank := range c.banks {
		if bank.Outputs < 1 || bank.Outputs > shiftreg.FrameBits {
			return fmt.Errorf("%s bank: outputs must be 1-%d, got %d", role, shiftreg.FrameBits, bank.Outputs)
		}
		if role == shiftreg.Simulated {
			continue
		}
		if err := bank.Pinout().Validate(); err != nil {
			return fmt.Errorf("%s bank: %w", role, err)
		}
	}

	return nil
}

// firstOf returns the first non-empty value.
func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Path is the absolute path of the loaded config file, or "" when running
// on built-in defaults.
func (c *Config) Path() string {
	return c.path
}

// Role is the bank to drive. Without any setting the simulated bank is used
// so a bare invocation never touches hardware.
func (c *Config) Role() (shiftreg.Role, error) {
	return shiftreg.ParseRole(firstOf(c.flags.Bank, c.getenv("SHIFTBANK_BANK"), c.toml.Bank, "simulated"))
}

func (c *Config) Bank(role shiftreg.Role) BankConfig {
	return c.banks[role]
}

func (c *Config) Backend() string {
	return firstOf(c.flags.Backend, c.getenv("SHIFTBANK_BACKEND"), c.toml.Backend, BackendSysfs)
}

func (c *Config) SysfsRoot() string {
	return firstOf(c.toml.SysfsRoot, gpio.DefaultSysfsRoot)
}

func (c *Config) GPIOChip() string {
	return firstOf(c.toml.GPIOChip, "gpiochip0")
}

func (c *Config) logLevelName() string {
	if c.flags.Verbose {
		return zerolog.LevelDebugValue
	}
	return firstOf(c.getenv("SHIFTBANK_LOG_LEVEL"), c.toml.LogLevel, zerolog.LevelInfoValue)
}

func (c *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.logLevelName())
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func (c *Config) Hold() time.Duration {
	if c.toml.Hold == nil {
		return shiftreg.DefaultHold
	}
	return time.Duration(*c.toml.Hold)
}

func (c *Config) StepDelay() time.Duration {
	if c.toml.StepDelay == nil {
		return shiftreg.DefaultStepDelay
	}
	return time.Duration(*c.toml.StepDelay)
}
