package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration
type Config struct {
	Level       string   `koanf:"level" json:"level" yaml:"level"`
	Development bool     `koanf:"development" json:"development" yaml:"development"`
	Encoding    string   `koanf:"encoding" json:"encoding" yaml:"encoding"` // json or console
	OutputPaths []string `koanf:"output_paths" json:"output_paths" yaml:"output_paths"`
	ErrorPaths  []string `koanf:"error_paths" json:"error_paths" yaml:"error_paths"`

	// File, when set, receives a JSON copy of every entry with size-based rotation
	File FileConfig `koanf:"file" json:"file" yaml:"file"`

	// Additional fields to include in all logs
	InitialFields map[string]interface{} `koanf:"initial_fields" json:"initial_fields" yaml:"initial_fields"`
}

// FileConfig configures the rotating log file.
type FileConfig struct {
	Path       string `koanf:"path" json:"path" yaml:"path"`
	MaxSizeMB  int    `koanf:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days" json:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `koanf:"compress" json:"compress" yaml:"compress"`
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Development: false,
		Encoding:    "json",
		OutputPaths: []string{"stdout"},
		ErrorPaths:  []string{"stderr"},
		File: FileConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
	}
}

// DevelopmentConfig returns development logger configuration
func DevelopmentConfig() *Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.Development = true
	cfg.Encoding = "console"
	return cfg
}

// Build creates a logger from the configuration
func (c *Config) Build() (*ZapLogger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapConfig zap.Config
	if c.Development {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig = productionEncoderConfig()
	}

	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.Encoding = c.Encoding
	zapConfig.OutputPaths = c.OutputPaths
	zapConfig.ErrorOutputPaths = c.ErrorPaths
	zapConfig.Development = c.Development

	var opts []zap.Option
	if c.File.Path != "" {
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(productionEncoderConfig()),
			zapcore.AddSync(c.File.writer()),
			zapConfig.Level,
		)
		opts = append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		return nil, err
	}

	if len(c.InitialFields) > 0 {
		fields := make([]zap.Field, 0, len(c.InitialFields))
		for k, v := range c.InitialFields {
			fields = append(fields, zap.Any(k, v))
		}
		logger = logger.With(fields...)
	}

	return NewFromZap(logger), nil
}

func (f FileConfig) writer() *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   f.Path,
		MaxSize:    f.MaxSizeMB,
		MaxBackups: f.MaxBackups,
		MaxAge:     f.MaxAgeDays,
		Compress:   f.Compress,
	}
}

func productionEncoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.MessageKey = "message"
	enc.LevelKey = "level"
	enc.CallerKey = "caller"
	enc.StacktraceKey = "stacktrace"
	return enc
}

// NewFromConfig creates a new logger from configuration
func NewFromConfig(cfg *Config) (*ZapLogger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return cfg.Build()
}
