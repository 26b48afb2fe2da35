// Package shiftreg drives chains of serial-in/parallel-out shift registers
// (LED and relay banks) over four GPIO lines.
//
// A ShiftRegister keeps a 64-bit output image. Every mutating call clocks
// the whole image into the chain most significant bit first and latches it,
// so the physical outputs match the image after each successful call.
// Outputs are numbered from 1; output n is bit n-1 of the image.
package shiftreg

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gregoryjjb/shiftbank/circularbuffer"
	"gregoryjjb/shiftbank/gpio"
	"gregoryjjb/shiftbank/pubsub"
)

// FrameBits is the width of every frame clocked out, whatever the length
// of the physical chain.
const FrameBits = 64

const (
	DefaultHold      = time.Second
	DefaultStepDelay = 100 * time.Millisecond

	historySize = 32
	eventBuffer = 16
)

var (
	ErrBitRange     = errors.New("output number out of range 1-64")
	ErrWalkRange    = errors.New("walk length out of range 1-64")
	ErrNoController = errors.New("hardware bank needs a gpio controller")
)

// Event is published after every successful commit.
type Event struct {
	Role  Role
	Image uint64
	At    time.Time
}

// Commit records one attempt to write the image to the hardware.
type Commit struct {
	At    time.Time
	Image uint64
	Err   error
}

type ShiftRegister struct {
	// Hold is how long LampTest and RandomTestTimed keep their pattern lit.
	// Set before the register is shared.
	Hold time.Duration
	// StepDelay is the pause after each step of Walk.
	StepDelay time.Duration

	role   Role
	pinout Pinout
	lines  gpio.Controller
	logger zerolog.Logger
	random func() uint64

	// mu serializes commits; image and inSync are only written under it.
	mu      sync.Mutex
	image   atomic.Uint64
	inSync  atomic.Bool
	history *circularbuffer.CircularBuffer[Commit]
	events  *pubsub.Pubsub[Event]
}

// New returns a register for role wired as pinout. A Simulated register
// never touches lines, which may be nil.
func New(role Role, pinout Pinout, lines gpio.Controller) (*ShiftRegister, error) {
	if role != Simulated {
		if lines == nil {
			return nil, fmt.Errorf("%s bank: %w", role, ErrNoController)
		}
		if err := pinout.Validate(); err != nil {
			return nil, fmt.Errorf("%s bank: %w", role, err)
		}
	} else {
		pinout = Pinout{}
		lines = nil
	}

	sr := &ShiftRegister{
		Hold:      DefaultHold,
		StepDelay: DefaultStepDelay,

		role:   role,
		pinout: pinout,
		lines:  lines,
		logger: log.With().Str("component", "shiftreg").Str("bank", role.String()).Logger(),
		random: randomImage,

		history: circularbuffer.New[Commit](historySize),
		events:  pubsub.New[Event](eventBuffer),
	}

	return sr, nil
}

// NewForRole returns a register using the factory pinout of role.
func NewForRole(role Role, lines gpio.Controller) (*ShiftRegister, error) {
	pinout, _ := DefaultPinout(role)
	return New(role, pinout, lines)
}

// randomImage is uniform over [1, 2^64-2]: never all off, never all on.
func randomImage() uint64 {
	return rand.Uint64N(math.MaxUint64-1) + 1
}

// SetRandSource makes the random tests draw from src.
func (sr *ShiftRegister) SetRandSource(src rand.Source) {
	r := rand.New(src)

	sr.mu.Lock()
	defer sr.mu.Unlock()

	sr.random = func() uint64 {
		return r.Uint64N(math.MaxUint64-1) + 1
	}
}

func (sr *ShiftRegister) Role() Role {
	return sr.role
}

func (sr *ShiftRegister) Pinout() Pinout {
	return sr.pinout
}

func bit(num int) (uint64, error) {
	if num < 1 || num > FrameBits {
		return 0, fmt.Errorf("%w: %d", ErrBitRange, num)
	}
	return 1 << (num - 1), nil
}

// Snapshot returns the last successfully committed image without waiting
// for a running sequence.
func (sr *ShiftRegister) Snapshot() uint64 {
	return sr.image.Load()
}

// InSync reports whether the last commit succeeded. After a failed commit
// the hardware state is unknown until the next successful one.
func (sr *ShiftRegister) InSync() bool {
	return sr.inSync.Load()
}

// Get reports whether output num is on. It never touches the hardware.
func (sr *ShiftRegister) Get(num int) (bool, error) {
	b, err := bit(num)
	if err != nil {
		return false, err
	}
	return sr.image.Load()&b != 0, nil
}

func (sr *ShiftRegister) update(num int, fn func(image, bit uint64) uint64) error {
	b, err := bit(num)
	if err != nil {
		return err
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	return sr.commit(fn(sr.image.Load(), b))
}

func (sr *ShiftRegister) Set(num int) error {
	return sr.update(num, func(image, bit uint64) uint64 { return image | bit })
}

func (sr *ShiftRegister) Clear(num int) error {
	return sr.update(num, func(image, bit uint64) uint64 { return image &^ bit })
}

func (sr *ShiftRegister) Toggle(num int) error {
	return sr.update(num, func(image, bit uint64) uint64 { return image ^ bit })
}

// Write commits a whole image.
func (sr *ShiftRegister) Write(image uint64) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	return sr.commit(image)
}

// Reset switches every output off.
func (sr *ShiftRegister) Reset() error {
	return sr.Write(0)
}

// AllOn switches every output on.
func (sr *ShiftRegister) AllOn() error {
	return sr.Write(math.MaxUint64)
}

// History returns the most recent commit attempts, oldest first.
func (sr *ShiftRegister) History() []Commit {
	return sr.history.Slice()
}

// Subscribe returns a channel of committed images and a func to stop the
// subscription. Events are dropped if the channel is not drained.
func (sr *ShiftRegister) Subscribe() (func(), <-chan Event) {
	id, ch := sr.events.Subscribe()
	return func() {
		sr.events.Unsubscribe(id)
	}, ch
}

// commit writes next to the hardware and adopts it as the image only if
// the write succeeded. Callers hold mu.
func (sr *ShiftRegister) commit(next uint64) error {
	err := sr.shiftOut(next)
	now := time.Now()
	sr.history.Push(Commit{At: now, Image: next, Err: err})

	if err != nil {
		sr.inSync.Store(false)
		sr.logger.Err(err).
			Str("image", fmt.Sprintf("%#016x", next)).
			Msg("Commit failed, hardware state unknown")
		return err
	}

	sr.image.Store(next)
	sr.inSync.Store(true)
	sr.events.Publish(Event{Role: sr.role, Image: next, At: now})

	return nil
}

// shiftOut clocks image into the chain and latches it. The first failing
// line call aborts the frame; lines already driven keep their level.
func (sr *ShiftRegister) shiftOut(image uint64) error {
	if sr.role == Simulated {
		sr.logger.Debug().Str("outputs", Picture(image, FrameBits)).Msg("Simulated commit")
		return nil
	}

	lines := sr.pinout.Lines()
	for _, line := range lines {
		if err := sr.lines.Reserve(line); err != nil {
			return err
		}
	}

	// Output-enable is active low, so driving everything low enables the
	// outputs and idles data, clock and latch.
	for _, line := range lines {
		if err := sr.lines.SetDirection(line, gpio.Out); err != nil {
			return err
		}
		if err := sr.lines.SetValue(line, gpio.Low); err != nil {
			return err
		}
	}

	for i := FrameBits - 1; i >= 0; i-- {
		if err := sr.lines.SetValue(sr.pinout.Data, gpio.LevelOf(image>>i&1 == 1)); err != nil {
			return err
		}
		if err := sr.pulse(sr.pinout.Clock); err != nil {
			return err
		}
	}

	return sr.pulse(sr.pinout.Latch)
}

func (sr *ShiftRegister) pulse(line int) error {
	if err := sr.lines.SetValue(line, gpio.High); err != nil {
		return err
	}
	return sr.lines.SetValue(line, gpio.Low)
}

// Picture draws the first width outputs of image, output 1 leftmost, '#'
// for on and '.' for off.
func Picture(image uint64, width int) string {
	if width > FrameBits {
		width = FrameBits
	}

	var sb strings.Builder
	for i := 0; i < width; i++ {
		if image>>i&1 == 1 {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
