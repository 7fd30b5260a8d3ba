package ledger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// logger is a thin structured-logging facade over zerolog (harvested from
// Sergey-Bar-Alfred/services/gateway — the teacher has no logging
// dependency of its own, see DESIGN.md). Every call site logs mechanics
// only: entry id, seq, idempotency key, error code — never raw event
// payloads or account names, matching spec §7's "messages never leak
// secrets."
type logger struct {
	z zerolog.Logger
}

// newLogger builds a logger writing to w, or to os.Stdout when w is nil.
func newLogger(w io.Writer) logger {
	if w == nil {
		w = os.Stdout
	}
	return logger{z: zerolog.New(w).With().Timestamp().Logger()}
}

func (l logger) Info(event string, fields map[string]any) {
	ev := l.z.Info()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(event)
}

func (l logger) Warn(event string, fields map[string]any) {
	ev := l.z.Warn()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(event)
}

func (l logger) Error(event string, err error, fields map[string]any) {
	ev := l.z.Error().Err(err)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(event)
}

// nopLogger discards everything; used where no logger was configured.
func nopLogger() logger { return newLogger(io.Discard) }
