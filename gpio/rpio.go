//go:build !nogpio

package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// maxBCMLine is the highest GPIO number on the BCM283x/BCM2711 header.
const maxBCMLine = 53

// Rpio drives Raspberry Pi lines through /dev/gpiomem using BCM numbering.
type Rpio struct {
	mu       sync.Mutex
	opened   bool
	reserved map[int]bool
}

func NewRpio() *Rpio {
	return &Rpio{reserved: make(map[int]bool)}
}

func (r *Rpio) Reserve(line int) error {
	if line < 0 || line > maxBCMLine {
		return hardwareError(OpReserve, line, fmt.Errorf("%w: BCM lines are 0-%d", ErrNoSuchLine, maxBCMLine))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.opened {
		if err := rpio.Open(); err != nil {
			return hardwareError(OpReserve, line, err)
		}
		r.opened = true
	}
	r.reserved[line] = true

	return nil
}

func (r *Rpio) pin(op Op, line int) (rpio.Pin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.reserved[line] {
		return 0, hardwareError(op, line, fmt.Errorf("line not reserved"))
	}
	return rpio.Pin(line), nil
}

func (r *Rpio) SetDirection(line int, dir Direction) error {
	pin, err := r.pin(OpSetDirection, line)
	if err != nil {
		return err
	}

	switch dir {
	case Out:
		pin.Output()
	case In:
		pin.Input()
	default:
		return hardwareError(OpSetDirection, line, fmt.Errorf("invalid direction %q", dir))
	}

	return nil
}

func (r *Rpio) SetValue(line int, level Level) error {
	pin, err := r.pin(OpSetValue, line)
	if err != nil {
		return err
	}

	if level == High {
		pin.High()
	} else {
		pin.Low()
	}

	return nil
}

func (r *Rpio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.opened {
		return nil
	}
	r.opened = false
	r.reserved = make(map[int]bool)
	return rpio.Close()
}
