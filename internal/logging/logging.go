// Package logging provides the installer's logger: every message carries an
// INFO, ERROR, or SUCCESS tag and a timestamp, and is duplicated to stdout
// and to a persistent log file.
package logging

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures logger construction.
type Options struct {
	// LogFile is the persistent log destination. Empty disables file output.
	LogFile string

	// Verbose enables debug-level output on the console.
	Verbose bool

	// NoColor disables colored severity tags on the console.
	NoColor bool
}

// Logger tags messages with INFO, ERROR, or SUCCESS and writes them to the
// console and the persistent log file.
type Logger struct {
	std     *zap.Logger
	success *zap.Logger
	file    *os.File
}

// New builds a Logger per opts. If the log file cannot be opened the logger
// still works console-only and the returned error reports the file problem.
func New(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	console := zapcore.Lock(os.Stdout)

	stdCores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder(stdLevelEncoder(opts.NoColor)), console, level),
	}
	successCores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder(successLevelEncoder(opts.NoColor)), console, level),
	}

	l := &Logger{}

	var fileErr error
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fileErr = fmt.Errorf("cannot open log file %s: %w", opts.LogFile, err)
		} else {
			l.file = f
			sink := zapcore.Lock(zapcore.AddSync(f))
			stdCores = append(stdCores, zapcore.NewCore(consoleEncoder(stdLevelEncoder(true)), sink, level))
			successCores = append(successCores, zapcore.NewCore(consoleEncoder(successLevelEncoder(true)), sink, level))
		}
	}

	l.std = zap.New(zapcore.NewTee(stdCores...))
	l.success = zap.New(zapcore.NewTee(successCores...))
	return l, fileErr
}

// NewNop returns a logger that discards everything. For tests.
func NewNop() *Logger {
	return &Logger{std: zap.NewNop(), success: zap.NewNop()}
}

// NewForCores builds a logger on the given cores, bypassing stdout and file
// setup. Tests use this with an observer core.
func NewForCores(std, success zapcore.Core) *Logger {
	return &Logger{std: zap.New(std), success: zap.New(success)}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.std.Debug(msg, fields...) }

func (l *Logger) Info(msg string, fields ...zap.Field) { l.std.Info(msg, fields...) }

func (l *Logger) Error(msg string, fields ...zap.Field) { l.std.Error(msg, fields...) }

// Success logs msg with the SUCCESS severity tag.
func (l *Logger) Success(msg string, fields ...zap.Field) { l.success.Info(msg, fields...) }

// Sync flushes both underlying loggers and closes the log file.
func (l *Logger) Sync() {
	_ = l.std.Sync()
	_ = l.success.Sync()
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

func consoleEncoder(levelEnc zapcore.LevelEncoder) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    levelEnc,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func stdLevelEncoder(noColor bool) zapcore.LevelEncoder {
	return func(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		tag := lvl.CapitalString()
		if !noColor && lvl >= zapcore.ErrorLevel {
			tag = color.RedString(tag)
		}
		enc.AppendString(tag)
	}
}

func successLevelEncoder(noColor bool) zapcore.LevelEncoder {
	return func(lvl zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		tag := "SUCCESS"
		if !noColor {
			tag = color.GreenString(tag)
		}
		enc.AppendString(tag)
	}
}
