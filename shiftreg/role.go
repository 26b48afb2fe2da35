package shiftreg

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the bank a register drives. The zero value is Simulated.
type Role int

const (
	Simulated Role = iota
	LedBank
	RelayBank
)

func (r Role) String() string {
	switch r {
	case Simulated:
		return "simulated"
	case LedBank:
		return "led"
	case RelayBank:
		return "relay"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simulated", "sim", "simulation":
		return Simulated, nil
	case "led", "leds":
		return LedBank, nil
	case "relay", "relays", "relais":
		return RelayBank, nil
	default:
		return Simulated, fmt.Errorf("unknown bank %q", s)
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

var ErrInvalidPinout = errors.New("invalid pinout")

// Pinout holds the four line numbers of one register chain.
type Pinout struct {
	OutputEnable int `toml:"output_enable"`
	Data         int `toml:"data"`
	Clock        int `toml:"clock"`
	Latch        int `toml:"latch"`
}

// Lines returns the lines in reservation order.
func (p Pinout) Lines() [4]int {
	return [4]int{p.OutputEnable, p.Data, p.Clock, p.Latch}
}

func (p Pinout) Validate() error {
	names := [4]string{"output_enable", "data", "clock", "latch"}
	seen := make(map[int]string, 4)

	for i, line := range p.Lines() {
		if line < 0 {
			return fmt.Errorf("%w: %s line %d is negative", ErrInvalidPinout, names[i], line)
		}
		if other, ok := seen[line]; ok {
			return fmt.Errorf("%w: %s and %s share line %d", ErrInvalidPinout, other, names[i], line)
		}
		seen[line] = names[i]
	}

	return nil
}

var defaultPinouts = map[Role]Pinout{
	LedBank:   {OutputEnable: 276, Data: 38, Clock: 44, Latch: 40},
	RelayBank: {OutputEnable: 277, Data: 45, Clock: 39, Latch: 37},
}

// DefaultPinout returns the factory wiring of role. Simulated has none.
func DefaultPinout(role Role) (Pinout, bool) {
	p, ok := defaultPinouts[role]
	return p, ok
}
