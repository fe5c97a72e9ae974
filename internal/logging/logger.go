// Package logging provides structured logging for the qbfetch CLI.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures a Logger.
type Options struct {
	// Verbose enables debug level output.
	Verbose bool

	// LogFile is an optional path for a rotating JSON log (empty = console only).
	LogFile string

	// Console overrides the console destination (default os.Stdout).
	Console io.Writer
}

// Logger wraps zerolog with a console writer and an optional rotating file sink.
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	file    *lumberjack.Logger
}

// NewLogger creates a logger from opts.
func NewLogger(opts Options) *Logger {
	console := opts.Console
	if console == nil {
		// stdout for logs, stderr is reserved for progress bars
		console = os.Stdout
	}

	l := &Logger{console: console}
	if opts.LogFile != "" {
		l.file = &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
	}
	l.zlog = l.build(console)

	if opts.Verbose {
		SetGlobalLevel(zerolog.DebugLevel)
	}
	return l
}

// NewDefaultCLILogger creates a console-only logger.
func NewDefaultCLILogger() *Logger {
	return NewLogger(Options{})
}

// NewNopLogger returns a logger that discards everything. Used in tests.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop(), console: io.Discard}
}

func (l *Logger) build(console io.Writer) zerolog.Logger {
	return zerolog.New(l.writer(console)).With().Timestamp().Logger()
}

// writer stacks the console writer and the file sink.
func (l *Logger) writer(console io.Writer) io.Writer {
	var out io.Writer = zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: "15:04:05",
		NoColor:    !isTerminal(console),
	}
	if l.file != nil {
		out = zerolog.MultiLevelWriter(out, l.file)
	}
	return out
}

// isTerminal reports whether w is a terminal; colors are only used there.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// WithRunID returns a child logger that tags every entry with the run id.
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{
		zlog:    l.zlog.With().Str("run_id", runID).Logger(),
		console: l.console,
		file:    l.file,
	}
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// With creates a child logger with additional context.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// SetOutput redirects console output, e.g. through the progress bar writer
// so log lines print above the bars. Context fields such as run_id and the
// file sink are kept.
func (l *Logger) SetOutput(w io.Writer) {
	l.console = w
	l.zlog = l.zlog.Output(l.writer(w))
}

// Output returns the current console writer.
func (l *Logger) Output() io.Writer {
	return l.console
}

// Close flushes and closes the file sink, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
