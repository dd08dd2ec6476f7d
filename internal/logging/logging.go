// Package logging builds the leveled loggers used by the command line tools.
package logging

import (
	"io"
	"strings"

	"github.com/labstack/gommon/log"
)

const header = `{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`

// New returns a logger writing to wrt at the named level. An unknown level falls back to warn.
func New(prefix, level string, wrt io.Writer) *log.Logger {
	logger := log.New(prefix)
	logger.SetOutput(wrt)
	logger.SetHeader(header)

	lvl, ok := ParseLevel(level)
	logger.SetLevel(lvl)

	if !ok {
		logger.Warnf("unknown log level: %s . fall-backed to warn", level)
	}

	return logger
}

// ParseLevel maps debug, info, warn, error and off to a gommon level.
// The empty string means warn.
func ParseLevel(level string) (log.Lvl, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DEBUG, true
	case "info":
		return log.INFO, true
	case "warn", "":
		return log.WARN, true
	case "error":
		return log.ERROR, true
	case "off":
		return log.OFF, true
	default:
		return log.WARN, false
	}
}
