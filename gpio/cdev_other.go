//go:build !linux

package gpio

// Cdev needs the Linux GPIO character device; elsewhere every call fails.
type Cdev struct{}

func NewCdev(chip string) *Cdev {
	return &Cdev{}
}

func (c *Cdev) Reserve(line int) error {
	return hardwareError(OpReserve, line, ErrUnsupported)
}

func (c *Cdev) SetDirection(line int, dir Direction) error {
	return hardwareError(OpSetDirection, line, ErrUnsupported)
}

func (c *Cdev) SetValue(line int, level Level) error {
	return hardwareError(OpSetValue, line, ErrUnsupported)
}

func (c *Cdev) Close() error {
	return nil
}
