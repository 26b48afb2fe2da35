package gpio

import "sync"

// Call is one operation seen by a Recorder.
type Call struct {
	Op        Op
	Line      int
	Direction Direction
	Level     Level
}

// Recorder is an in-memory Controller that keeps every call. FailOn, when
// set, is consulted before each call; a non-nil result fails the call with
// a *HardwareError wrapping it and the call is not applied.
type Recorder struct {
	FailOn func(Call) error

	mu         sync.Mutex
	calls      []Call
	reserved   map[int]bool
	directions map[int]Direction
	levels     map[int]Level
}

func NewRecorder() *Recorder {
	return &Recorder{
		reserved:   make(map[int]bool),
		directions: make(map[int]Direction),
		levels:     make(map[int]Level),
	}
}

func (r *Recorder) apply(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailOn != nil {
		if err := r.FailOn(c); err != nil {
			return hardwareError(c.Op, c.Line, err)
		}
	}

	r.calls = append(r.calls, c)
	switch c.Op {
	case OpReserve:
		r.reserved[c.Line] = true
	case OpSetDirection:
		r.directions[c.Line] = c.Direction
	case OpSetValue:
		r.levels[c.Line] = c.Level
	}

	return nil
}

func (r *Recorder) Reserve(line int) error {
	return r.apply(Call{Op: OpReserve, Line: line})
}

func (r *Recorder) SetDirection(line int, dir Direction) error {
	return r.apply(Call{Op: OpSetDirection, Line: line, Direction: dir})
}

func (r *Recorder) SetValue(line int, level Level) error {
	return r.apply(Call{Op: OpSetValue, Line: line, Level: level})
}

func (r *Recorder) Close() error {
	return nil
}

// Calls returns a copy of every applied call in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	calls := make([]Call, len(r.calls))
	copy(calls, r.calls)
	return calls
}

// Clear forgets the recorded calls but keeps line state.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = nil
}

func (r *Recorder) Reserved(line int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.reserved[line]
}

func (r *Recorder) Direction(line int) Direction {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.directions[line]
}

func (r *Recorder) Level(line int) Level {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.levels[line]
}

// Frames replays the recorded calls through a model of a 64-bit shift
// register: the data level is shifted in on each clock rising edge and the
// register contents are emitted on each latch rising edge.
func (r *Recorder) Frames(data, clock, latch int) []uint64 {
	var (
		frames   []uint64
		register uint64
		levels   = make(map[int]Level)
	)

	for _, c := range r.Calls() {
		if c.Op != OpSetValue {
			continue
		}

		rising := levels[c.Line] == Low && c.Level == High
		levels[c.Line] = c.Level

		if !rising {
			continue
		}
		switch c.Line {
		case clock:
			register = register<<1 | uint64(levels[data])
		case latch:
			frames = append(frames, register)
		}
	}

	return frames
}
