package logger

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color" // Import the fatih/color package for colored severity tags
)

// Level is the process-wide verbosity. It is chosen once at startup from
// the --silent and --verbose flags and never changes afterwards.
type Level int

const (
	// Normal emits errors and warnings only.
	Normal Level = iota
	// Silent emits nothing at all, not even errors.
	Silent
	// Verbose emits everything, including info and debug messages.
	Verbose
)

// String returns the lowercase name of the level.
func (l Level) String() string {
	switch l {
	case Silent:
		return "silent"
	case Verbose:
		return "verbose"
	default:
		return "normal"
	}
}

// timeLayout renders timestamps as e.g. "18 Oct 2026, 09:41:07".
const timeLayout = "02 Jan 2006, 15:04:05"

// Severity tags. Each one is colorized using fatih/color.
// Red is used for errors, bright magenta for warnings (same palette as the
// rest of the tool), cyan for debug traces and green for informational text.
var (
	errorTag = color.New(color.FgRed)
	warnTag  = color.New(color.FgHiMagenta)
	debugTag = color.New(color.FgCyan)
	infoTag  = color.New(color.FgGreen)
)

// Logger is the severity gate every component logs through.
// It is built once by the command layer and passed explicitly to the
// resolver, the dispatcher and the operation back end.
//
// Errors and warnings are written to the error stream, info and debug
// messages to the output stream. Every line carries a local timestamp
// and a severity tag:
//
//	[18 Oct 2026, 09:41:07] -Error ** message
//	[18 Oct 2026, 09:41:07] [Debug] message
type Logger struct {
	level  Level
	stdout io.Writer
	stderr io.Writer

	// now returns the timestamp for each line. Tests replace it.
	now func() time.Time

	// debug and info are assigned in New based on the level.
	// When verbose output is disabled they are no-op functions, so callers
	// never need to check the level themselves.
	debug func(format string, a ...any)
	info  func(format string, a ...any)
}

// New creates a Logger for the given level writing to stdout and stderr.
func New(level Level, stdout, stderr io.Writer) *Logger {
	l := &Logger{
		level:  level,
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}

	if level == Verbose {
		// Assign debug/info to real printers writing to the output stream.
		l.debug = func(format string, a ...any) { l.emit(l.stdout, debugTag, "[Debug]", format, a...) }
		l.info = func(format string, a ...any) { l.emit(l.stdout, infoTag, "", format, a...) }
	} else {
		// Assign no-op functions that silently ignore verbose-only messages.
		l.debug = func(format string, a ...any) {}
		l.info = func(format string, a ...any) {}
	}
	return l
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(Silent, io.Discard, io.Discard)
}

// Level returns the verbosity the Logger was created with.
func (l *Logger) Level() Level {
	return l.level
}

// Errorf logs an error-severity message unless the level is Silent.
func (l *Logger) Errorf(format string, a ...any) {
	if l.level == Silent {
		return
	}
	l.emit(l.stderr, errorTag, "-Error **", format, a...)
}

// Warnf logs a warning-severity message unless the level is Silent.
func (l *Logger) Warnf(format string, a ...any) {
	if l.level == Silent {
		return
	}
	l.emit(l.stderr, warnTag, "-Warning **", format, a...)
}

// Infof logs an informational message, only at Verbose level.
func (l *Logger) Infof(format string, a ...any) {
	l.info(format, a...)
}

// Debugf logs a debug message, only at Verbose level.
func (l *Logger) Debugf(format string, a ...any) {
	l.debug(format, a...)
}

// Report prints the single terminal failure line of a run:
//
//	error: <message>
//
// Unlike Errorf it carries no timestamp. Only Silent suppresses it.
func (l *Logger) Report(err error) {
	if err == nil || l.level == Silent {
		return
	}
	fmt.Fprintf(l.stderr, "%s %s\n", errorTag.Sprint("error:"), err)
}

// Stdout returns the output stream for child processes, io.Discard when Silent.
func (l *Logger) Stdout() io.Writer {
	if l.level == Silent {
		return io.Discard
	}
	return l.stdout
}

// Stderr returns the error stream for child processes, io.Discard when Silent.
func (l *Logger) Stderr() io.Writer {
	if l.level == Silent {
		return io.Discard
	}
	return l.stderr
}

func (l *Logger) emit(w io.Writer, c *color.Color, tag, format string, a ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, a...), "\n")
	if tag != "" {
		tag = c.Sprint(tag)
	}
	fmt.Fprintf(w, "[%s] %s %s\n", l.now().Format(timeLayout), tag, msg)
}
