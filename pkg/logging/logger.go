package logging

import (
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/fatih/color"
)

// writer is an io.Writer that splits its input stream into lines and writes
// those lines to an underlying logger.
type writer struct {
	// callback is the logging callback.
	callback func(string)
	// buffer is any incomplete line fragment left over from a previous write.
	buffer []byte
}

// trimCarriageReturn trims any single trailing carriage return from the end of
// a byte slice.
func trimCarriageReturn(buffer []byte) []byte {
	if len(buffer) > 0 && buffer[len(buffer)-1] == '\r' {
		return buffer[:len(buffer)-1]
	}
	return buffer
}

// Write implements io.Writer.Write.
func (w *writer) Write(buffer []byte) (int, error) {
	// Append the data to our internal buffer.
	w.buffer = append(w.buffer, buffer...)

	// Process all lines in the buffer, tracking the number of bytes that we
	// process.
	var processed int
	remaining := w.buffer
	for {
		// Find the index of the next newline character.
		index := bytes.IndexByte(remaining, '\n')
		if index == -1 {
			break
		}

		// Process the line.
		w.callback(string(trimCarriageReturn(remaining[:index])))

		// Update the number of bytes that we've processed.
		processed += index + 1

		// Update the remaining slice.
		remaining = remaining[index+1:]
	}

	// If we managed to process bytes, then truncate our internal buffer.
	if processed > 0 {
		leftover := len(w.buffer) - processed
		if leftover > 0 {
			copy(w.buffer[:leftover], w.buffer[processed:])
		}
		w.buffer = w.buffer[:leftover]
	}

	// Done.
	return len(buffer), nil
}

// Logger is the main logger type. It has the novel property that it still
// functions if nil, but it doesn't log anything. Every stage of the transfer
// pipeline holds its own sublogger so that log lines can be attributed to
// the stage that produced them (SourceLister, TargetLister, filter names,
// TransferWorkerPool, DeleteWorker, StatsAggregator). It is safe for
// concurrent usage.
type Logger struct {
	// prefix is any prefix specified for the logger.
	prefix string
	// level is the minimum level at which this logger (and its subloggers,
	// unless they're reconfigured) will emit output.
	level Level
	// out is the destination logger to write to. If nil, output goes through
	// the global log package (whatever it's configured to write to).
	out *log.Logger
}

// RootLogger is the root logger from which all other loggers derive. Its
// level defaults to LevelWarn; cmd/s3sync adjusts it from the --log-level
// flag before the pipeline starts.
var RootLogger = &Logger{level: LevelWarn}

// NewLogger creates a standalone logger at the given level that writes to the
// given destination instead of the global log package output. This is used by
// tests that need to capture or suppress log output without disturbing the
// global logger (e.g. must.* helpers invoked from table-driven tests).
func NewLogger(level Level, output io.Writer) *Logger {
	return &Logger{
		level: level,
		out:   log.New(output, "", log.LstdFlags),
	}
}

// SetLevel adjusts the logger's effective level. It is not safe to call this
// concurrently with logging calls on the same logger.
func (l *Logger) SetLevel(level Level) {
	if l != nil {
		l.level = level
	}
}

// Sublogger creates a new sublogger with the specified name, inheriting the
// parent's level.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}

	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}

	return &Logger{
		prefix: prefix,
		level:  l.level,
		out:    l.out,
	}
}

// enabled reports whether a log line at the given level should be emitted.
func (l *Logger) enabled(level Level) bool {
	return l != nil && level <= l.level && l.level != LevelDisabled
}

// output is the internal logging method.
func (l *Logger) output(calldepth int, line string) {
	if l.prefix != "" {
		line = fmt.Sprintf("[%s] %s", l.prefix, line)
	}
	if l.out != nil {
		l.out.Output(calldepth+1, line)
		return
	}
	log.Output(calldepth, line)
}

// Infof logs basic execution information: dry-run intent, tagging-sync
// status, and per-run summaries.
func (l *Logger) Infof(format string, v ...interface{}) {
	if l.enabled(LevelInfo) {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Debugf logs filter decisions and stage-level bookkeeping.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.enabled(LevelDebug) {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Tracef logs low-level execution information, such as per-part progress.
func (l *Logger) Tracef(format string, v ...interface{}) {
	if l.enabled(LevelTrace) {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Warnf logs a non-fatal condition (an IntegrityWarning or
// PreconditionWarning) with a yellow prefix. Emitting a warning does not, by
// itself, set has_warning — callers are responsible for recording that via
// the stats channel.
func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.enabled(LevelWarn) {
		l.output(3, color.YellowString("warning: "+format, v...))
	}
}

// Errorf logs a fatal or per-object error with a red prefix.
func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.enabled(LevelError) {
		l.output(3, color.RedString("error: "+format, v...))
	}
}

// Writer returns an io.Writer that writes lines at debug level. It is used to
// capture output from subordinate libraries (e.g. the AWS SDK's own request
// logger) without introducing a second logging framework.
func (l *Logger) Writer() io.Writer {
	if l == nil {
		return io.Discard
	}
	return &writer{callback: l.Debugf0}
}

// Debugf0 is a zero-argument adapter used by Writer; it exists so that
// Writer doesn't need to allocate a closure per call to Debugf.
func (l *Logger) Debugf0(line string) {
	l.Debugf("%s", line)
}
