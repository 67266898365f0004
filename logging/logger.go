package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/crytic/solverify/logging/colors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

// GlobalLogger describes a Logger that is disabled by default and is instantiated when a verification run is
// configured. Each package should create its own sub-logger through NewSubLogger.
var GlobalLogger = NewLogger(zerolog.Disabled)

// Logger describes a custom logging object that can log events to any number of writers, in either a structured
// (JSON) format or an unstructured (console) format with or without ANSI coloring.
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// context describes the key-value pairs that are attached to every event emitted by this logger.
	context map[string]string

	// structuredLogger, unstructuredLogger and unstructuredColorLogger emit events to their respective writer lists.
	structuredLogger        zerolog.Logger
	unstructuredLogger      zerolog.Logger
	unstructuredColorLogger zerolog.Logger

	// structuredWriters describes the writers receiving JSON-formatted events.
	structuredWriters []io.Writer

	// unstructuredWriters describes the writers receiving console-formatted events with no coloring.
	unstructuredWriters []io.Writer

	// unstructuredColorWriters describes the writers receiving console-formatted events with ANSI coloring.
	unstructuredColorWriters []io.Writer
}

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// NewLogger will create a new Logger object with a specific log level. The logger has no writers until AddWriter is
// called, so it is effectively disabled until then.
func NewLogger(level zerolog.Level) *Logger {
	l := &Logger{
		level:                    level,
		context:                  make(map[string]string),
		structuredWriters:        make([]io.Writer, 0),
		unstructuredWriters:      make([]io.Writer, 0),
		unstructuredColorWriters: make([]io.Writer, 0),
	}
	l.rebuild()
	return l
}

// NewSubLogger will create a new Logger with unique context in the form of a key-value pair. The expected use of this
// function is for each package to have their own unique logger so that parsing of logs is "grep-able" based on some key.
// Sub-loggers start with copies of their parent's writer lists; writers added to or removed from either logger afterward
// do not affect the other.
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	subContext := make(map[string]string, len(l.context)+1)
	for k, v := range l.context {
		subContext[k] = v
	}
	subContext[key] = value

	sub := &Logger{
		level:                    l.level,
		context:                  subContext,
		structuredWriters:        slices.Clone(l.structuredWriters),
		unstructuredWriters:      slices.Clone(l.unstructuredWriters),
		unstructuredColorWriters: slices.Clone(l.unstructuredColorWriters),
	}
	sub.rebuild()
	return sub
}

// AddWriter will add a writer to the list of channels where log output will be sent. Adding a writer that is already
// registered for the same format and coloring is a no-op.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writerList(format, colored)
	for _, w := range *writers {
		if w == writer {
			return
		}
	}
	*writers = append(*writers, writer)
	l.rebuild()
}

// RemoveWriter will remove a writer from the list of writers that the logger manages. If the writer does not exist,
// this function is a no-op.
func (l *Logger) RemoveWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writerList(format, colored)
	for i, w := range *writers {
		if w == writer {
			*writers = append((*writers)[:i:i], (*writers)[i+1:]...)
			l.rebuild()
			return
		}
	}
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel will update the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.rebuild()
}

// writerList returns a pointer to the writer list that corresponds to the given format and coloring.
func (l *Logger) writerList(format LogFormat, colored bool) *[]io.Writer {
	if format == STRUCTURED {
		return &l.structuredWriters
	}
	if colored {
		return &l.unstructuredColorWriters
	}
	return &l.unstructuredWriters
}

// rebuild recreates the underlying zerolog loggers from the current writer lists, level and context.
func (l *Logger) rebuild() {
	// Structured output gets timestamps and every context field
	structured := zerolog.Nop()
	if len(l.structuredWriters) > 0 {
		structured = zerolog.New(zerolog.MultiLevelWriter(l.structuredWriters...)).Level(l.level).With().Timestamp().Logger()
	}

	unstructured := zerolog.Nop()
	if len(l.unstructuredWriters) > 0 {
		consoleWriters := make([]io.Writer, len(l.unstructuredWriters))
		for i, w := range l.unstructuredWriters {
			consoleWriters[i] = setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: true}, l.level)
		}
		unstructured = zerolog.New(zerolog.MultiLevelWriter(consoleWriters...)).Level(l.level)
	}

	unstructuredColor := zerolog.Nop()
	if len(l.unstructuredColorWriters) > 0 {
		consoleWriters := make([]io.Writer, len(l.unstructuredColorWriters))
		for i, w := range l.unstructuredColorWriters {
			consoleWriters[i] = setupDefaultFormatting(zerolog.ConsoleWriter{Out: w}, l.level)
		}
		unstructuredColor = zerolog.New(zerolog.MultiLevelWriter(consoleWriters...)).Level(l.level)
	}

	// Attach context to each logger
	for k, v := range l.context {
		structured = structured.With().Str(k, v).Logger()
		unstructured = unstructured.With().Str(k, v).Logger()
		unstructuredColor = unstructuredColor.With().Str(k, v).Logger()
	}

	l.structuredLogger = structured
	l.unstructuredLogger = unstructured
	l.unstructuredColorLogger = unstructuredColor
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	l.log(zerolog.TraceLevel, args...)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	l.log(zerolog.DebugLevel, args...)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	l.log(zerolog.InfoLevel, args...)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	l.log(zerolog.WarnLevel, args...)
}

// Error is a wrapper function that will log an error event.
func (l *Logger) Error(args ...any) {
	l.log(zerolog.ErrorLevel, args...)
}

// Panic is a wrapper function that will log a panic event and then panic.
func (l *Logger) Panic(args ...any) {
	l.log(zerolog.PanicLevel, args...)
}

// log builds the messages for the provided arguments and emits an event at the given level to every logger.
func (l *Logger) log(level zerolog.Level, args ...any) {
	// Build the messages and retrieve any error or associated structured log info
	colorMsg, noColorMsg, err, info := buildMsgs(args...)

	// Instantiate log events
	structuredLog := l.structuredLogger.WithLevel(level)
	unstructuredLog := l.unstructuredLogger.WithLevel(level)
	colorLog := l.unstructuredColorLogger.WithLevel(level)

	// Chain the error. Stack traces are only attached in debug mode or below, or when panicking.
	withStack := l.level <= zerolog.DebugLevel || level == zerolog.PanicLevel
	chainError(err, withStack, structuredLog, unstructuredLog, colorLog)

	// Chain the structured log info
	if info != nil {
		structuredLog.Any("info", info)
		unstructuredLog.Any("info", info)
		colorLog.Any("info", info)
	}

	// Send off the logs. WithLevel does not panic on its own, so we do it after every writer has the event.
	structuredLog.Msg(noColorMsg)
	unstructuredLog.Msg(noColorMsg)
	colorLog.Msg(colorMsg)
	if level == zerolog.PanicLevel {
		panic(noColorMsg)
	}
}

// buildMsgs describes a function that takes in a variadic list of arguments of any type and returns two strings and,
// optionally, an error and a StructuredLogInfo object. The first string will be a colorized-string that can be used for
// console logging while the second string will be a non-colorized one that can be used for file/structured logging.
// The error and the StructuredLogInfo can be used to add additional context to log messages
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	// Guard clause
	if len(args) == 0 {
		return "", "", nil, nil
	}

	// Initialize the base color context, the string buffers and the structured log info object
	colorCtx := colors.Reset
	colorOutput := make([]string, 0)
	noColorOutput := make([]string, 0)
	var info StructuredLogInfo
	var err error

	// Iterate through each argument in the list and switch on type
	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			// If the argument is a color function, switch the current color context
			colorCtx = t
		case StructuredLogInfo:
			// Note that only one structured log info can be provided for each log message
			info = t
		case error:
			// Note that only one error can be provided for each log message
			err = t
		default:
			// In the base case, append the object to the two string buffers. The colored string buffer will have the
			// current color context applied to it.
			colorOutput = append(colorOutput, colorCtx(t))
			noColorOutput = append(noColorOutput, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(colorOutput, ""), strings.Join(noColorOutput, ""), err, info
}

// chainError is a helper function that chains an error to each of the provided events. If withStack is true, then a
// stack trace is added to the events as well.
func chainError(err error, withStack bool, events ...*zerolog.Event) {
	if err == nil {
		return
	}
	for _, event := range events {
		event.Err(err)
		if withStack {
			event.Stack()
		}
	}
}

// setupDefaultFormatting will update the console logger's formatting to the solverify standard
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	// Get rid of the timestamp for console output
	writer.FormatTimestamp = func(i interface{}) string {
		return ""
	}

	// We will define a custom format for each level
	writer.FormatLevel = func(i any) string {
		levelStr, _ := i.(string)
		level, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			return levelStr
		}

		// Consoles without coloring get the upper-cased level name
		if writer.NoColor {
			return strings.ToUpper(levelStr)
		}

		// Switch on the level and return a custom, colored string
		switch level {
		case zerolog.TraceLevel:
			return colors.CyanBold(zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return colors.BlueBold(zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return colors.GreenBold(colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return colors.YellowBold(zerolog.LevelWarnValue)
		case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
			return colors.RedBold(levelStr)
		default:
			return levelStr
		}
	}

	// If we are above debug level, we want to get rid of the `module` component when logging to console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module"}
	}

	return writer
}
