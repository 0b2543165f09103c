package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// newLogger returns a leveled zerolog logger writing to w, as console text
// unless jsonOut is set.
func newLogger(w io.Writer, level string, jsonOut bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.Nop(), fmt.Errorf("unknown log level %q", level)
	}

	out := w
	if !jsonOut {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: color.NoColor}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
