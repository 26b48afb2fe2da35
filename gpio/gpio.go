// Package gpio is the hardware boundary: numbered digital lines that can be
// reserved, switched to output and driven high or low.
package gpio

import (
	"errors"
	"fmt"
)

type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

type Level uint8

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == High {
		return "1"
	}
	return "0"
}

// LevelOf maps a bit to a line level.
func LevelOf(bit bool) Level {
	if bit {
		return High
	}
	return Low
}

// Op names the line operation that failed.
type Op string

const (
	OpReserve      Op = "reserve"
	OpSetDirection Op = "set-direction"
	OpSetValue     Op = "set-value"
)

var (
	ErrUnsupported = errors.New("gpio backend not supported on this build")
	ErrNoSuchLine  = errors.New("no such line")
)

// HardwareError is returned by every Controller when a line operation fails.
type HardwareError struct {
	Op   Op
	Line int
	Err  error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("gpio %s line %d: %v", e.Op, e.Line, e.Err)
}

func (e *HardwareError) Unwrap() error {
	return e.Err
}

func hardwareError(op Op, line int, err error) error {
	if err == nil {
		return nil
	}
	return &HardwareError{Op: op, Line: line, Err: err}
}

// Controller drives numbered output lines. Calls are not retried; a failed
// call returns a *HardwareError.
type Controller interface {
	// Reserve claims the line for this process. Reserving a line that is
	// already held by the same controller succeeds.
	Reserve(line int) error
	SetDirection(line int, dir Direction) error
	SetValue(line int, level Level) error
	Close() error
}
