package pebble

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Logger routes pebble's internal messages to zerolog. Informational
// messages are logged at debug level.
type Logger struct {
	zerolog.Logger
}

func (l Logger) Infof(format string, args ...interface{}) {
	l.Debug().Msgf(format, args...)
}

func (l Logger) Errorf(format string, args ...interface{}) {
	l.Error().Msgf(format, args...)
}

// Fatalf logs and panics instead of exiting the process.
func (l Logger) Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.Error().Msg(msg)
	panic(msg)
}
