package gpio

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// DefaultSysfsRoot is where the kernel exposes the legacy GPIO interface.
const DefaultSysfsRoot = "/sys/class/gpio"

// Sysfs drives lines through the legacy /sys/class/gpio interface. Line
// numbers are the kernel's global GPIO numbers.
type Sysfs struct {
	Logger zerolog.Logger

	fs afero.Fs

	mu       sync.Mutex
	reserved map[int]bool
	exported []int // lines this controller exported itself
}

// NewSysfs returns a controller rooted at root on fsys, normally
// DefaultSysfsRoot on afero.NewOsFs().
func NewSysfs(fsys afero.Fs, root string) *Sysfs {
	return &Sysfs{
		Logger:   log.With().Str("component", "gpio").Str("backend", "sysfs").Logger(),
		fs:       afero.NewBasePathFs(fsys, root),
		reserved: make(map[int]bool),
	}
}

func lineDir(line int) string {
	return "gpio" + strconv.Itoa(line)
}

func (s *Sysfs) write(name string, value string) error {
	return afero.WriteFile(s.fs, name, []byte(value), 0644)
}

func (s *Sysfs) Reserve(line int) error {
	if line < 0 {
		return hardwareError(OpReserve, line, ErrNoSuchLine)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reserved[line] {
		return nil
	}

	// Exported by an earlier run or another tool; use it as-is and leave it
	// exported on Close.
	if _, err := s.fs.Stat(lineDir(line)); err == nil {
		s.Logger.Warn().Int("line", line).Msg("Line already exported, possibly by another process; using it")
		s.reserved[line] = true
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return hardwareError(OpReserve, line, err)
	}

	if err := s.write("export", strconv.Itoa(line)); err != nil {
		return hardwareError(OpReserve, line, err)
	}
	s.reserved[line] = true
	s.exported = append(s.exported, line)

	return nil
}

func (s *Sysfs) checkReserved(op Op, line int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.reserved[line] {
		return hardwareError(op, line, fmt.Errorf("line not reserved"))
	}
	return nil
}

func (s *Sysfs) SetDirection(line int, dir Direction) error {
	if err := s.checkReserved(OpSetDirection, line); err != nil {
		return err
	}
	if dir != In && dir != Out {
		return hardwareError(OpSetDirection, line, fmt.Errorf("invalid direction %q", dir))
	}

	return hardwareError(OpSetDirection, line, s.write(path.Join(lineDir(line), "direction"), string(dir)))
}

func (s *Sysfs) SetValue(line int, level Level) error {
	if err := s.checkReserved(OpSetValue, line); err != nil {
		return err
	}

	return hardwareError(OpSetValue, line, s.write(path.Join(lineDir(line), "value"), level.String()))
}

// Close keeps every line exported: an unexported output-enable line floats
// and can switch the whole bank off. Use Unexport to give the lines back.
func (s *Sysfs) Close() error {
	return nil
}

// Unexport releases the lines this controller exported itself.
func (s *Sysfs) Unexport() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, line := range s.exported {
		if err := s.write("unexport", strconv.Itoa(line)); err != nil {
			errs = append(errs, fmt.Errorf("unexport line %d: %w", line, err))
		}
	}
	s.exported = nil
	s.reserved = make(map[int]bool)

	return errors.Join(errs...)
}
