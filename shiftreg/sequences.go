package shiftreg

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Each sequence holds the register for its whole duration, so other callers
// wait instead of interleaving with the restore. Snapshot and Get stay
// available while a sequence runs.

// LampTest lights every output for Hold, then switches everything off and
// restores the previous image. Cancelling ctx cuts the hold short; the
// restore still happens and ctx's error is returned.
func (sr *ShiftRegister) LampTest(ctx context.Context) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	sr.logger.Info().Dur("hold", sr.Hold).Msg("Lamp test")
	return sr.flash(ctx, math.MaxUint64)
}

// RandomTest lights a random, non-empty set of outputs and leaves it lit.
func (sr *ShiftRegister) RandomTest() error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	image := sr.random()
	sr.logger.Info().Str("image", fmt.Sprintf("%#016x", image)).Msg("Random test")
	return sr.commit(image)
}

// RandomTestTimed is LampTest with a random pattern instead of all outputs.
func (sr *ShiftRegister) RandomTestTimed(ctx context.Context) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	image := sr.random()
	sr.logger.Info().
		Str("image", fmt.Sprintf("%#016x", image)).
		Dur("hold", sr.Hold).
		Msg("Timed random test")
	return sr.flash(ctx, image)
}

// flash commits pattern, holds it, then resets and restores the image that
// was committed before. A failed pattern commit returns at once.
func (sr *ShiftRegister) flash(ctx context.Context, pattern uint64) error {
	saved := sr.image.Load()

	if err := sr.commit(pattern); err != nil {
		return err
	}

	holdErr := sleep(ctx, sr.Hold)

	if err := sr.commit(0); err != nil {
		return errors.Join(holdErr, err)
	}
	if err := sr.commit(saved); err != nil {
		return errors.Join(holdErr, err)
	}

	return holdErr
}

// Walk switches on outputs 1 to count one after the other, keeping the
// earlier ones lit and pausing StepDelay after each, then resets the bank.
// The bank width is the caller's business. Cancelling ctx or a failed step
// stops the walk, and the bank is still reset.
func (sr *ShiftRegister) Walk(ctx context.Context, count int) error {
	if count < 1 || count > FrameBits {
		return fmt.Errorf("%w: %d", ErrWalkRange, count)
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	sr.logger.Info().Int("count", count).Dur("step_delay", sr.StepDelay).Msg("Walk")

	for i := 1; i <= count; i++ {
		b, _ := bit(i)
		if err := sr.commit(sr.image.Load() | b); err != nil {
			return errors.Join(err, sr.commit(0))
		}

		if err := sleep(ctx, sr.StepDelay); err != nil {
			return errors.Join(err, sr.commit(0))
		}
	}

	return sr.commit(0)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
