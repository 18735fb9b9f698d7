package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// fileLayout names per-run log files, e.g. 01032024_02-00-00.log.
const fileLayout = "02012006_15-04-05"

// NewLogger creates a zap logger for the given environment.
// prod uses JSON output, local/dev use colored console output.
// levelOverride (if non-empty) overrides the log level: debug, info, warn, error.
func NewLogger(env string, levelOverride ...string) (*zap.Logger, error) {
	level := ""
	if len(levelOverride) > 0 {
		level = levelOverride[0]
	}
	cfg, err := buildConfig(env, level)
	if err != nil {
		return nil, err
	}
	return build(cfg)
}

// NewRunLogger is NewLogger that also writes to a new file in dir named after
// the run start time. An empty dir disables the file. Returns the file path.
func NewRunLogger(env, level, dir string, startedAt time.Time) (*zap.Logger, string, error) {
	cfg, err := buildConfig(env, level)
	if err != nil {
		return nil, "", err
	}
	if dir == "" {
		l, err := build(cfg)
		return l, "", err
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, "", fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, FileName(startedAt))
	cfg.OutputPaths = append(cfg.OutputPaths, path)

	l, err := build(cfg)
	if err != nil {
		return nil, "", err
	}
	return l, path, nil
}

// FileName returns the log file name for a run started at t.
func FileName(t time.Time) string {
	return t.Format(fileLayout) + ".log"
}

func buildConfig(env, level string) (zap.Config, error) {
	var cfg zap.Config
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "local", "dev", "docker":
		cfg = zap.NewDevelopmentConfig()
	default:
		return zap.Config{}, fmt.Errorf("unknown environment %q for logger", env)
	}

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return zap.Config{}, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg, nil
}

func build(cfg zap.Config) (*zap.Logger, error) {
	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}
