package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the verbosity of console output.
type Level int

// Log levels, from quietest to noisiest.
const (
	LevelNone Level = iota
	LevelFatal
	LevelError
	LevelWarning
	LevelInfo
	LevelDebug
	LevelTrace
)

var levelNames = []string{"None", "Fatal", "Error", "Warning", "Info", "Debug", "Trace"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return levelNames[0]
}

// ParseLevel reads a level name, ignoring case. MetaInfo is accepted as Warning.
func ParseLevel(s string) (Level, error) {
	if strings.EqualFold(s, "MetaInfo") {
		return LevelWarning, nil
	}
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q (expected one of %s)", s, strings.Join(levelNames, ", "))
}

// slog levels for the moche levels that have no slog equivalent.
const (
	slogTrace = slog.LevelDebug - 4
	slogFatal = slog.LevelError + 4
)

func (l Level) slog() slog.Level {
	switch l {
	case LevelFatal:
		return slogFatal
	case LevelError:
		return slog.LevelError
	case LevelWarning:
		return slog.LevelWarn
	case LevelInfo:
		return slog.LevelInfo
	case LevelDebug:
		return slog.LevelDebug
	case LevelTrace:
		return slogTrace
	}
	// None: nothing is enabled
	return slogFatal + 1
}

// consoleHandler writes bare messages, colouring warnings and errors.
// Errors go to errWriter.
type consoleHandler struct {
	writer    io.Writer
	errWriter io.Writer
	level     *Level
	quiet     *bool
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return !*h.quiet && level >= h.level.slog()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if *h.quiet {
		return nil
	}
	w, msg := h.writer, record.Message
	switch {
	case record.Level >= slog.LevelError:
		w, msg = h.errWriter, ColorRed(msg)
	case record.Level >= slog.LevelWarn:
		msg = ColorYellow(msg)
	}
	_, err := fmt.Fprintln(w, msg)
	return err
}

func (h *consoleHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *consoleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// createLumberjackLogger creates a lumberjack logger with configuration from environment variables
func createLumberjackLogger(logFilePath string) *lumberjack.Logger {
	config := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    1,
		MaxBackups: 2,
		MaxAge:     30,
		Compress:   false,
	}

	if maxSizeStr := os.Getenv("MOCHE_LOG_MAX_SIZE"); maxSizeStr != "" {
		if maxSize, err := strconv.Atoi(maxSizeStr); err == nil && maxSize > 0 {
			config.MaxSize = maxSize
		}
	}

	if maxBackupsStr := os.Getenv("MOCHE_LOG_MAX_BACKUPS"); maxBackupsStr != "" {
		if maxBackups, err := strconv.Atoi(maxBackupsStr); err == nil && maxBackups >= 0 {
			config.MaxBackups = maxBackups
		}
	}

	if maxAgeStr := os.Getenv("MOCHE_LOG_MAX_AGE"); maxAgeStr != "" {
		if maxAge, err := strconv.Atoi(maxAgeStr); err == nil && maxAge > 0 {
			config.MaxAge = maxAge
		}
	}

	return config
}

// multiHandler fans out log records to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}

// SplogOptions configures NewSplogWithOptions.
type SplogOptions struct {
	Writer    io.Writer
	ErrWriter io.Writer
	Level     Level
	// LogFile enables a rotating file log that records every level.
	LogFile string
	RunID   string
}

// Splog provides structured logging and output
type Splog struct {
	logger    *slog.Logger
	writer    io.Writer
	logWriter io.WriteCloser
	level     Level
	quiet     bool
}

// NewSplog creates a console-only logger at Info level, or Debug when DEBUG is set.
func NewSplog() *Splog {
	level := LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = LevelDebug
	}
	splog, _ := NewSplogWithOptions(SplogOptions{Level: level})
	return splog
}

// NewSplogWithOptions creates a logger with optional file logging.
func NewSplogWithOptions(opts SplogOptions) (*Splog, error) {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.ErrWriter == nil {
		opts.ErrWriter = os.Stderr
	}
	splog := &Splog{
		writer: opts.Writer,
		level:  opts.Level,
	}

	handlers := []slog.Handler{&consoleHandler{
		writer:    opts.Writer,
		errWriter: opts.ErrWriter,
		level:     &splog.level,
		quiet:     &splog.quiet,
	}}

	if opts.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		lumberjackLogger := createLumberjackLogger(opts.LogFile)
		splog.logWriter = lumberjackLogger

		var fileHandler slog.Handler = slog.NewTextHandler(lumberjackLogger, &slog.HandlerOptions{
			Level: slogTrace,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				switch a.Key {
				case slog.TimeKey:
					return slog.Attr{Key: a.Key, Value: slog.StringValue(a.Value.Time().Format("2006-01-02 15:04:05.000"))}
				case slog.LevelKey:
					if lvl, ok := a.Value.Any().(slog.Level); ok {
						switch lvl {
						case slogTrace:
							return slog.String(a.Key, "TRACE")
						case slogFatal:
							return slog.String(a.Key, "FATAL")
						}
					}
				}
				return a
			},
		})
		if opts.RunID != "" {
			fileHandler = fileHandler.WithAttrs([]slog.Attr{slog.String("run", opts.RunID)})
		}
		handlers = append(handlers, fileHandler)
	}

	splog.logger = slog.New(&multiHandler{handlers: handlers})
	return splog, nil
}

// SetLevel changes the console verbosity.
func (s *Splog) SetLevel(level Level) {
	s.level = level
}

// Level returns the console verbosity.
func (s *Splog) Level() Level {
	return s.level
}

// Enabled reports whether messages at level reach the console.
func (s *Splog) Enabled(level Level) bool {
	return !s.quiet && level != LevelNone && level <= s.level
}

// SetQuiet suppresses all console output while a full screen program runs.
func (s *Splog) SetQuiet(quiet bool) {
	s.quiet = quiet
}

// IsQuiet returns whether the logger is in quiet mode.
func (s *Splog) IsQuiet() bool {
	return s.quiet
}

// Writer returns the console writer.
func (s *Splog) Writer() io.Writer {
	return s.writer
}

func (s *Splog) log(level slog.Level, prefix, format string, args []any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	s.logger.Log(context.Background(), level, prefix+msg)
}

// Info writes an info message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Info(format string, args ...any) {
	s.log(slog.LevelInfo, "", format, args)
}

// Warn writes a warning message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Warn(format string, args ...any) {
	s.log(slog.LevelWarn, "⚠️  ", format, args)
}

// Error writes an error message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Error(format string, args ...any) {
	s.log(slog.LevelError, "❌ ", format, args)
}

// Fatal writes a message for an error that ends the run.
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Fatal(format string, args ...any) {
	s.log(slogFatal, "❌ ", format, args)
}

// Debug writes a debug message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Debug(format string, args ...any) {
	s.log(slog.LevelDebug, "", format, args)
}

// Trace writes a message only shown with --verbose.
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Trace(format string, args ...any) {
	s.log(slogTrace, "", format, args)
}

// Tip writes a tip message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Tip(format string, args ...any) {
	s.log(slog.LevelInfo, "💡 ", format, args)
}

// Newline writes a newline
func (s *Splog) Newline() {
	if !s.quiet {
		_, _ = fmt.Fprintln(s.writer)
	}
}

// Close closes the log file if one was opened
func (s *Splog) Close() error {
	if s.logWriter != nil {
		return s.logWriter.Close()
	}
	return nil
}
