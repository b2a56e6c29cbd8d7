// Package logging builds the process-wide zap logger. The output shape
// depends on where the process runs: local development gets a colorized
// console plus capped log files, managed container environments get
// JSON on stdout only (the platform ships stdout to the log service).
package logging

import (
	"os"
	"path/filepath"

	"plutus-api/internal/shared"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Mode selects the logging topology. It is derived once at startup and
// passed in, never re-read from the environment elsewhere.
type Mode string

const (
	ModeLocal   Mode = "local"
	ModeManaged Mode = "managed"
)

// ecsMetadataEnv is set by the container platform on managed deployments.
const ecsMetadataEnv = "ECS_CONTAINER_METADATA_URI_V4"

// DetectMode treats the process as managed when the container metadata
// marker is present and no explicit debug flag was set.
func DetectMode(debug bool) Mode {
	if debug {
		return ModeLocal
	}
	if shared.GetEnv(ecsMetadataEnv, "") != "" {
		return ModeManaged
	}
	return ModeLocal
}

type Config struct {
	Mode        Mode
	Level       string // empty means the mode default
	Dir         string // local log file directory, empty means "logs"
	Service     string
	Environment string
}

// New builds the logger for cfg. The returned func flushes buffered
// entries and is safe to call on shutdown. Sink failures (disk full,
// closed stdout) are swallowed by zap; logging never propagates errors
// to callers.
func New(cfg Config) (*zap.SugaredLogger, func(), error) {
	level := zapcore.InfoLevel
	if cfg.Mode == ModeLocal {
		level = zapcore.DebugLevel
	}
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		level = parsed
	}

	var core zapcore.Core
	switch cfg.Mode {
	case ModeManaged:
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core = zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.Lock(os.Stdout),
			level,
		)
	default:
		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		console := zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.Lock(os.Stdout),
			level,
		)

		dir := cfg.Dir
		if dir == "" {
			dir = "logs"
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileEnc := zapcore.NewJSONEncoder(fileCfg)
		combined := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(dir, "plutus-api.combined.log"),
			MaxSize:    shared.LogFileMaxSizeMB,
			MaxBackups: shared.LogFileMaxBackups,
		})
		errors := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(dir, "plutus-api.error.log"),
			MaxSize:    shared.LogFileMaxSizeMB,
			MaxBackups: shared.LogFileMaxBackups,
		})
		core = zapcore.NewTee(
			console,
			zapcore.NewCore(fileEnc, combined, level),
			zapcore.NewCore(fileEnc, errors, zapcore.ErrorLevel),
		)
	}

	logger := zap.New(core).With(
		zap.String("service", cfg.Service),
		zap.String("environment", cfg.Environment),
	)
	log := logger.Sugar()
	log.Infow("Logger initialized",
		"mode", string(cfg.Mode),
		"log_level", level.String(),
	)
	flush := func() {
		_ = logger.Sync()
	}
	return log, flush, nil
}
