// Package logger builds the application's zap logger.
package logger

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the minimum level and an optional log file.
type Config struct {
	Level string
	File  string
}

// New builds a logger that writes levels below ERROR to stdout and ERROR and
// above to stderr. If cfg.File is set, every level is also appended to that
// file. The returned cleanup func syncs the logger and closes the file.
func New(cfg Config) (*zap.Logger, func(), error) {
	return newLogger(cfg, os.Stdout, os.Stderr)
}

func newLogger(cfg Config, stdout, stderr io.Writer) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, nil, fmt.Errorf("parsing log level: %w", err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	console := zapcore.NewConsoleEncoder(encCfg)

	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l < zapcore.ErrorLevel
	})
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l >= zapcore.ErrorLevel
	})

	cores := []zapcore.Core{
		zapcore.NewCore(console, zapcore.AddSync(stdout), low),
		zapcore.NewCore(console, zapcore.AddSync(stderr), high),
	}

	var f *os.File
	if cfg.File != "" {
		var err error
		f, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEnc, zapcore.AddSync(f), level))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	cleanup := func() {
		_ = log.Sync()
		if f != nil {
			f.Close()
		}
	}
	return log, cleanup, nil
}
