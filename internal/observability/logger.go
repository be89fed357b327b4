package observability

import (
	"time"

	"github.com/rs/zerolog"
)

// LogDispatch emits one event per dispatched message. Framework failures
// log at warn, handler-defined codes at info and successes at debug.
func LogDispatch(logger zerolog.Logger, service string, status int, framework bool, duration time.Duration, respBytes int) {
	event := logger.Debug()
	switch {
	case status != 0 && framework:
		event = logger.Warn()
	case status != 0:
		event = logger.Info()
	}

	event.
		Str("service", service).
		Int("status", status).
		Dur("duration", duration).
		Int("bytes", respBytes).
		Msg("dispatch")
}
