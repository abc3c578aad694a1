// Package logx is the project's hand-rolled console logger: leveled,
// ANSI-colored output held as a small Logger value so platform
// implementations (see internal/engine) can carry one instead of relying
// on package-level state.
package logx

import (
	"fmt"
	"strings"
)

// Level mirrors the platform interface's printf(level, fmt, ...) contract.
type Level int

const (
	Info Level = iota
	Debug
	Success
	Warning
)

// Logger prints ANSI-colored, leveled console output.
//
// Debug-level messages are gated on Verbose; all other levels always print.
type Logger struct {
	Verbose bool
	logPath string
}

// New returns a Logger with debug output gated on verbose.
func New(verbose bool) *Logger {
	return &Logger{Verbose: verbose}
}

// SetLogFile makes every Debug-level line also get appended to path, in
// addition to the normal console output. Pass an empty path to stop
// appending.
func (l *Logger) SetLogFile(path string) {
	l.logPath = path
}

// Printf prints format at the given level, gating Debug on l.Verbose.
func (l *Logger) Printf(level Level, format string, a ...interface{}) {
	switch level {
	case Debug:
		if !l.Verbose {
			return
		}
		line := fmt.Sprintf(format, a...)
		fmt.Print("\033[33m")
		fmt.Print("[DEBUG] " + line)
		fmt.Print("\033[0m")
		if l.logPath != "" {
			if err := AppendToFile(l.logPath, strings.TrimRight(line, "\n")); err != nil {
				l.Warningf("failed to append to log file %s: %v\n", l.logPath, err)
			}
		}
	case Success:
		l.Greenf(format, a...)
	case Warning:
		l.Warningf(format, a...)
	default:
		fmt.Printf(format, a...)
	}
}

// Greenf prints a light green message, used for success output.
func (l *Logger) Greenf(format string, a ...interface{}) {
	fmt.Print("\033[92m")
	fmt.Printf(format, a...)
	fmt.Print("\033[0m")
}

// Warningf prints a bright yellow warning.
func (l *Logger) Warningf(format string, a ...interface{}) {
	fmt.Print("\033[93m")
	fmt.Printf(format, a...)
	fmt.Print("\033[0m")
}
