// Package logger configures the process-wide JSON structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// level is shared by every logger created through SetupDefault so that the
// level can be changed once the configuration has been read.
var level = new(slog.LevelVar)

// Setup returns a slog.Logger writing JSON to w at the given level.
func Setup(w io.Writer, lvl slog.Leveler) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler)
}

// SetupDefault installs a JSON logger writing to w as the global logger.
// A nil writer means os.Stdout. The level starts at info; see SetLevel.
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	level.Set(slog.LevelInfo)
	slog.SetDefault(Setup(w, level))
}

// SetLevel changes the level of the global logger.
// Unknown names leave the level unchanged and return false.
func SetLevel(name string) bool {
	lvl, ok := ParseLevel(name)
	if !ok {
		return false
	}
	level.Set(lvl)
	return true
}

// ParseLevel maps debug, info, warn (or warning) and error to slog levels.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
