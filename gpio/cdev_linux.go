//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

const consumerLabel = "shiftbank"

// Cdev drives lines through the GPIO character device. Line numbers are
// offsets on the configured chip.
type Cdev struct {
	chip string

	mu    sync.Mutex
	lines map[int]*gpiocdev.Line
}

// NewCdev returns a controller for chip, e.g. "gpiochip0".
func NewCdev(chip string) *Cdev {
	return &Cdev{
		chip:  chip,
		lines: make(map[int]*gpiocdev.Line),
	}
}

func (c *Cdev) Reserve(line int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lines[line]; ok {
		return nil
	}

	l, err := gpiocdev.RequestLine(c.chip, line, gpiocdev.WithConsumer(consumerLabel))
	if err != nil {
		return hardwareError(OpReserve, line, fmt.Errorf("%s: %w", c.chip, err))
	}
	c.lines[line] = l

	return nil
}

func (c *Cdev) line(op Op, line int) (*gpiocdev.Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.lines[line]
	if !ok {
		return nil, hardwareError(op, line, fmt.Errorf("line not reserved"))
	}
	return l, nil
}

func (c *Cdev) SetDirection(line int, dir Direction) error {
	l, err := c.line(OpSetDirection, line)
	if err != nil {
		return err
	}

	switch dir {
	case Out:
		err = l.Reconfigure(gpiocdev.AsOutput(0))
	case In:
		err = l.Reconfigure(gpiocdev.AsInput)
	default:
		err = fmt.Errorf("invalid direction %q", dir)
	}

	return hardwareError(OpSetDirection, line, err)
}

func (c *Cdev) SetValue(line int, level Level) error {
	l, err := c.line(OpSetValue, line)
	if err != nil {
		return err
	}

	return hardwareError(OpSetValue, line, l.SetValue(int(level)))
}

// Close releases every requested line.
func (c *Cdev) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for offset, l := range c.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release line %d: %w", offset, err))
		}
	}
	c.lines = make(map[int]*gpiocdev.Line)

	return errors.Join(errs...)
}
