package gpio

import (
	"github.com/rs/zerolog"
)

// Logging logs every call at trace level and forwards it to Next. With a
// nil Next it is a dry run: calls are logged and succeed.
type Logging struct {
	Next   Controller
	Logger zerolog.Logger
}

func NewLogging(next Controller, logger zerolog.Logger) *Logging {
	return &Logging{
		Next:   next,
		Logger: logger.With().Str("component", "gpio").Logger(),
	}
}

func (l *Logging) Reserve(line int) error {
	l.Logger.Trace().Int("line", line).Msg("reserve")
	if l.Next == nil {
		return nil
	}
	return l.logErr(l.Next.Reserve(line))
}

func (l *Logging) SetDirection(line int, dir Direction) error {
	l.Logger.Trace().Int("line", line).Str("direction", string(dir)).Msg("set-direction")
	if l.Next == nil {
		return nil
	}
	return l.logErr(l.Next.SetDirection(line, dir))
}

func (l *Logging) SetValue(line int, level Level) error {
	l.Logger.Trace().Int("line", line).Stringer("level", level).Msg("set-value")
	if l.Next == nil {
		return nil
	}
	return l.logErr(l.Next.SetValue(line, level))
}

func (l *Logging) Close() error {
	if l.Next == nil {
		return nil
	}
	return l.Next.Close()
}

func (l *Logging) logErr(err error) error {
	if err != nil {
		l.Logger.Debug().Err(err).Msg("GPIO call failed")
	}
	return err
}
