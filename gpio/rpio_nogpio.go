//go:build nogpio

package gpio

// Rpio is unavailable in nogpio builds; every call fails.
type Rpio struct{}

func NewRpio() *Rpio {
	return &Rpio{}
}

func (r *Rpio) Reserve(line int) error {
	return hardwareError(OpReserve, line, ErrUnsupported)
}

func (r *Rpio) SetDirection(line int, dir Direction) error {
	return hardwareError(OpSetDirection, line, ErrUnsupported)
}

func (r *Rpio) SetValue(line int, level Level) error {
	return hardwareError(OpSetValue, line, ErrUnsupported)
}

func (r *Rpio) Close() error {
	return nil
}
