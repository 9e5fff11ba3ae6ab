package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	allLogFile   = "statechecker.log"
	errorLogFile = "error.log"
)

// Options tunes NewLogger. The zero value logs info and up to stdout and
// the rotated files.
type Options struct {
	Level  string
	Stdout io.Writer
}

// NewLogger tees three cores: a console encoder on stdout, a JSON file with
// every entry at or above the level, and a JSON file with warnings and
// errors only. Both files rotate.
func NewLogger(logDir string, opts Options) (*zap.Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	level := zap.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	errorsOnly := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.WarnLevel && l >= level
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(stdout), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), rotating(logDir, allLogFile), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), rotating(logDir, errorLogFile), errorsOnly),
	)
	return zap.New(core, zap.AddCaller()), nil
}

func rotating(dir, name string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
}
