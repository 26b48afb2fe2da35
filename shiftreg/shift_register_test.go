package shiftreg_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gregoryjjb/shiftbank/gpio"
	"gregoryjjb/shiftbank/shiftreg"
)

func newSimulated(t *testing.T) *shiftreg.ShiftRegister {
	t.Helper()
	sr, err := shiftreg.NewForRole(shiftreg.Simulated, nil)
	require.NoError(t, err)
	return sr
}

func newRecorded(t *testing.T, role shiftreg.Role) (*shiftreg.ShiftRegister, *gpio.Recorder) {
	t.Helper()
	rec := gpio.NewRecorder()
	sr, err := shiftreg.NewForRole(role, rec)
	require.NoError(t, err)
	return sr, rec
}

func assertOutputs(t *testing.T, sr *shiftreg.ShiftRegister, want func(n int) bool) {
	t.Helper()
	for n := 1; n <= shiftreg.FrameBits; n++ {
		got, err := sr.Get(n)
		require.NoError(t, err)
		assert.Equal(t, want(n), got, "output %d", n)
	}
}

func TestNew(t *testing.T) {
	t.Run("DefaultPinouts", func(t *testing.T) {
		led, _ := newRecorded(t, shiftreg.LedBank)
		assert.Equal(t, shiftreg.Pinout{OutputEnable: 276, Data: 38, Clock: 44, Latch: 40}, led.Pinout())

		relay, _ := newRecorded(t, shiftreg.RelayBank)
		assert.Equal(t, shiftreg.Pinout{OutputEnable: 277, Data: 45, Clock: 39, Latch: 37}, relay.Pinout())

		sim := newSimulated(t)
		assert.Equal(t, shiftreg.Pinout{}, sim.Pinout())
		assert.Equal(t, shiftreg.Simulated, sim.Role())
	})

	t.Run("HardwareBankNeedsController", func(t *testing.T) {
		_, err := shiftreg.NewForRole(shiftreg.LedBank, nil)
		assert.ErrorIs(t, err, shiftreg.ErrNoController)
	})

	t.Run("RejectsInvalidPinout", func(t *testing.T) {
		_, err := shiftreg.New(shiftreg.RelayBank, shiftreg.Pinout{OutputEnable: 1, Data: 2, Clock: 2, Latch: 3}, gpio.NewRecorder())
		assert.ErrorIs(t, err, shiftreg.ErrInvalidPinout)
	})

	t.Run("StartsOffAndOutOfSync", func(t *testing.T) {
		sr := newSimulated(t)
		assert.Equal(t, uint64(0), sr.Snapshot())
		assert.False(t, sr.InSync())
		assert.Empty(t, sr.History())
	})
}

func TestBitOperations(t *testing.T) {
	t.Run("SetSingleOutput", func(t *testing.T) {
		for num := 1; num <= shiftreg.FrameBits; num++ {
			sr := newSimulated(t)
			require.NoError(t, sr.Set(num))
			assertOutputs(t, sr, func(n int) bool { return n == num })
		}
	})

	t.Run("SetIsIdempotent", func(t *testing.T) {
		sr := newSimulated(t)
		require.NoError(t, sr.Set(7))
		once := sr.Snapshot()
		require.NoError(t, sr.Set(7))
		assert.Equal(t, once, sr.Snapshot())
	})

	t.Run("ToggleIsSelfInverse", func(t *testing.T) {
		sr := newSimulated(t)
		require.NoError(t, sr.Set(5))
		require.NoError(t, sr.Toggle(5))
		got, _ := sr.Get(5)
		assert.False(t, got)

		require.NoError(t, sr.Toggle(5))
		got, _ = sr.Get(5)
		assert.True(t, got)
	})

	t.Run("ClearKeepsOthers", func(t *testing.T) {
		sr := newSimulated(t)
		require.NoError(t, sr.Set(1))
		require.NoError(t, sr.Set(3))
		require.NoError(t, sr.Clear(3))
		assert.Equal(t, uint64(0b1), sr.Snapshot())
	})

	t.Run("ResetAndAllOn", func(t *testing.T) {
		sr := newSimulated(t)
		require.NoError(t, sr.AllOn())
		assertOutputs(t, sr, func(int) bool { return true })
		assert.Equal(t, uint64(math.MaxUint64), sr.Snapshot())

		require.NoError(t, sr.Reset())
		assertOutputs(t, sr, func(int) bool { return false })
	})

	t.Run("Write", func(t *testing.T) {
		sr := newSimulated(t)
		require.NoError(t, sr.Write(0b1010))
		assertOutputs(t, sr, func(n int) bool { return n == 2 || n == 4 })
		assert.True(t, sr.InSync())
	})

	t.Run("OutOfRange", func(t *testing.T) {
		sr, rec := newRecorded(t, shiftreg.LedBank)

		for _, num := range []int{0, -1, 65} {
			assert.ErrorIs(t, sr.Set(num), shiftreg.ErrBitRange)
			assert.ErrorIs(t, sr.Clear(num), shiftreg.ErrBitRange)
			assert.ErrorIs(t, sr.Toggle(num), shiftreg.ErrBitRange)
			_, err := sr.Get(num)
			assert.ErrorIs(t, err, shiftreg.ErrBitRange)
		}
		assert.Empty(t, rec.Calls(), "rejected numbers must not reach the hardware")
	})
}

func TestShiftOut(t *testing.T) {
	t.Run("LedBankSetThree", func(t *testing.T) {
		sr, rec := newRecorded(t, shiftreg.LedBank)

		require.NoError(t, sr.Set(3))

		calls := rec.Calls()
		require.GreaterOrEqual(t, len(calls), 12)
		assert.Equal(t, []gpio.Call{
			{Op: gpio.OpReserve, Line: 276},
			{Op: gpio.OpReserve, Line: 38},
			{Op: gpio.OpReserve, Line: 44},
			{Op: gpio.OpReserve, Line: 40},
			{Op: gpio.OpSetDirection, Line: 276, Direction: gpio.Out},
			{Op: gpio.OpSetValue, Line: 276, Level: gpio.Low},
			{Op: gpio.OpSetDirection, Line: 38, Direction: gpio.Out},
			{Op: gpio.OpSetValue, Line: 38, Level: gpio.Low},
			{Op: gpio.OpSetDirection, Line: 44, Direction: gpio.Out},
			{Op: gpio.OpSetValue, Line: 44, Level: gpio.Low},
			{Op: gpio.OpSetDirection, Line: 40, Direction: gpio.Out},
			{Op: gpio.OpSetValue, Line: 40, Level: gpio.Low},
		}, calls[:12])

		// 64 cycles of data, clock high, clock low; then latch high, latch low.
		frame := calls[12:]
		require.Len(t, frame, 64*3+2)
		for cycle := 0; cycle < 64; cycle++ {
			bitIndex := 63 - cycle
			want := gpio.Low
			if bitIndex == 2 {
				want = gpio.High
			}
			assert.Equal(t, gpio.Call{Op: gpio.OpSetValue, Line: 38, Level: want}, frame[cycle*3], "data in cycle %d", cycle)
			assert.Equal(t, gpio.Call{Op: gpio.OpSetValue, Line: 44, Level: gpio.High}, frame[cycle*3+1])
			assert.Equal(t, gpio.Call{Op: gpio.OpSetValue, Line: 44, Level: gpio.Low}, frame[cycle*3+2])
		}
		assert.Equal(t, []gpio.Call{
			{Op: gpio.OpSetValue, Line: 40, Level: gpio.High},
			{Op: gpio.OpSetValue, Line: 40, Level: gpio.Low},
		}, frame[64*3:])

		assert.Equal(t, []uint64{0b100}, rec.Frames(38, 44, 40))
		assert.Equal(t, gpio.Low, rec.Level(276), "output-enable is active low")
	})

	t.Run("EveryCommitSendsFullFrame", func(t *testing.T) {
		sr, rec := newRecorded(t, shiftreg.RelayBank)
		p := sr.Pinout()

		require.NoError(t, sr.Set(1))
		require.NoError(t, sr.Set(64))
		require.NoError(t, sr.Clear(1))

		assert.Equal(t, []uint64{1, 1<<63 | 1, 1 << 63}, rec.Frames(p.Data, p.Clock, p.Latch))
	})

	t.Run("SimulatedTouchesNoLines", func(t *testing.T) {
		rec := gpio.NewRecorder()
		sr, err := shiftreg.New(shiftreg.Simulated, shiftreg.Pinout{Data: 1, Clock: 2, Latch: 3}, rec)
		require.NoError(t, err)

		require.NoError(t, sr.AllOn())
		assert.Empty(t, rec.Calls())
	})
}

func TestCommitFailure(t *testing.T) {
	t.Run("DataLineFailsMidFrame", func(t *testing.T) {
		sr, rec := newRecorded(t, shiftreg.LedBank)
		boom := errors.New("line went away")
		dataWrites := 0
		rec.FailOn = func(c gpio.Call) error {
			if c.Op == gpio.OpSetValue && c.Line == 38 {
				dataWrites++
				// The first write to the data line idles it; fail ten bits in.
				if dataWrites == 11 {
					return boom
				}
			}
			return nil
		}

		err := sr.Set(3)

		var hwErr *gpio.HardwareError
		require.ErrorAs(t, err, &hwErr)
		assert.Equal(t, gpio.OpSetValue, hwErr.Op)
		assert.Equal(t, 38, hwErr.Line)
		assert.ErrorIs(t, err, boom)

		for _, c := range rec.Calls() {
			assert.False(t, c.Line == 40 && c.Level == gpio.High, "latch must not be pulsed")
		}
		assert.Empty(t, rec.Frames(38, 44, 40))
	})

	t.Run("ImageOnlyChangesOnSuccess", func(t *testing.T) {
		sr, rec := newRecorded(t, shiftreg.RelayBank)
		require.NoError(t, sr.Set(2))
		require.True(t, sr.InSync())

		rec.FailOn = func(c gpio.Call) error {
			if c.Op == gpio.OpReserve {
				return errors.New("permission denied")
			}
			return nil
		}
		require.Error(t, sr.Set(4))
		assert.Equal(t, uint64(0b10), sr.Snapshot())
		assert.False(t, sr.InSync())

		rec.FailOn = nil
		require.NoError(t, sr.Reset())
		assert.True(t, sr.InSync())

		history := sr.History()
		require.Len(t, history, 3)
		assert.NoError(t, history[0].Err)
		assert.Equal(t, uint64(0b1010), history[1].Image)
		assert.Error(t, history[1].Err)
		assert.Equal(t, uint64(0), history[2].Image)
	})
}

func TestRandomTest(t *testing.T) {
	t.Run("NeverZeroAndNotDegenerate", func(t *testing.T) {
		sr := newSimulated(t)
		seen := make(map[uint64]bool)

		for i := 0; i < 200; i++ {
			require.NoError(t, sr.RandomTest())
			image := sr.Snapshot()
			assert.NotZero(t, image)
			assert.NotEqual(t, uint64(math.MaxUint64), image)
			seen[image] = true
		}

		assert.Greater(t, len(seen), 1)
	})

	t.Run("SeededSourceIsRepeatable", func(t *testing.T) {
		a := newSimulated(t)
		b := newSimulated(t)
		a.SetRandSource(rand.NewPCG(1, 2))
		b.SetRandSource(rand.NewPCG(1, 2))

		require.NoError(t, a.RandomTest())
		require.NoError(t, b.RandomTest())
		assert.Equal(t, a.Snapshot(), b.Snapshot())
	})
}

func TestSubscribe(t *testing.T) {
	sr := newSimulated(t)
	unsubscribe, events := sr.Subscribe()

	require.NoError(t, sr.Set(1))
	ev := <-events
	assert.Equal(t, shiftreg.Simulated, ev.Role)
	assert.Equal(t, uint64(1), ev.Image)
	assert.False(t, ev.At.IsZero())

	unsubscribe()
	_, open := <-events
	assert.False(t, open)
}

func TestRole(t *testing.T) {
	tests := []struct {
		in   string
		want shiftreg.Role
	}{
		{"led", shiftreg.LedBank},
		{"LED", shiftreg.LedBank},
		{"relay", shiftreg.RelayBank},
		{"relais", shiftreg.RelayBank},
		{"sim", shiftreg.Simulated},
		{"simulated", shiftreg.Simulated},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var r shiftreg.Role
			require.NoError(t, r.UnmarshalText([]byte(tt.in)))
			assert.Equal(t, tt.want, r)

			text, err := r.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, tt.want.String(), string(text))
		})
	}

	_, err := shiftreg.ParseRole("motor")
	assert.Error(t, err)
	assert.Equal(t, shiftreg.Simulated, shiftreg.Role(0))
}

func TestPicture(t *testing.T) {
	assert.Equal(t, "#.#.", shiftreg.Picture(0b0101, 4))
	assert.Equal(t, "", shiftreg.Picture(1, 0))
	assert.Len(t, shiftreg.Picture(math.MaxUint64, 100), shiftreg.FrameBits)
}
