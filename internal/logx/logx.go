// Package logx owns the process-wide log sink. Console output goes to
// stdout at a level derived from the CLI verbosity flags; once a repository
// is resolved, a rotating debug log can be attached under its metadata
// directory.
package logx

import (
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var logger = zap.NewNop().Sugar()

var (
	consoleCore  zapcore.Core
	consoleLevel zapcore.Level
)

// Setup installs the console sink. Verbosity 0 is the default (info);
// positive values enable debug output; negative values keep errors only.
func Setup(verbosity int) {
	switch {
	case verbosity < 0:
		consoleLevel = zapcore.ErrorLevel
	case verbosity == 0:
		consoleLevel = zapcore.InfoLevel
	default:
		consoleLevel = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.LevelKey = ""
	cfg.CallerKey = ""

	sink, _, err := zap.Open("stdout")
	if err != nil {
		return
	}
	consoleCore = zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), sink, consoleLevel)
	logger = zap.New(consoleCore).Sugar()
}

// AttachFile tees all output, debug included, into a rotating log file in
// dir. Called once the repository's metadata directory is known.
func AttachFile(dir string) {
	if consoleCore == nil {
		return
	}
	fileSink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(dir, "git-ibundle.log"),
		MaxSize:    5, // megabytes
		MaxBackups: 2,
	})
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), fileSink, zapcore.DebugLevel)
	logger = zap.New(zapcore.NewTee(consoleCore, fileCore)).Sugar()
}

// L returns the current logger.
func L() *zap.SugaredLogger {
	return logger
}

// DebugEnabled reports whether debug-level console output is active, for
// callers that print multi-line detail only at higher verbosity.
func DebugEnabled() bool {
	return consoleLevel <= zapcore.DebugLevel && consoleCore != nil
}
