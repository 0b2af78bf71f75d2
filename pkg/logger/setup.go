package logger

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper around Uber's Zap logger. It is the process-wide sink for
// the diagnostics emitted while resolving configuration, installing
// instrumentations and sampling platform statistics.
type Logger struct {
	Zap *zap.Logger

	tracing bool
}

// NewLoggerClient initializes and returns a new instance of the logger based on configuration.
func NewLoggerClient(cfg Config) *Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	config := zap.Config{
		Level:             zap.NewAtomicLevelAt(parseLevel(cfg.Level)),
		Development:       false,
		DisableCaller:     false,
		DisableStacktrace: false,
		Sampling:          nil,
		Encoding:          "json",
		EncoderConfig:     encoderCfg,
		OutputPaths: []string{
			"stderr",
		},
		ErrorOutputPaths: []string{
			"stderr",
		},
		InitialFields: map[string]interface{}{
			"pid":     os.Getpid(),
			"service": serviceName,
		},
	}

	logger, err := config.Build(zap.AddCaller(), zap.AddCallerSkip(1))

	if err != nil {
		log.Fatal(err)
	}

	return &Logger{Zap: logger, tracing: cfg.EnableTracing}
}

// NewFromZap wraps an already built zap logger. Tests use it together with
// zaptest/observer to assert on emitted diagnostics.
func NewFromZap(z *zap.Logger) *Logger {
	return &Logger{Zap: z.WithOptions(zap.AddCallerSkip(1))}
}

// WithTracing returns a copy of the logger with trace correlation switched on
// or off for the *WithContext methods.
func (l *Logger) WithTracing(enabled bool) *Logger {
	return &Logger{Zap: l.Zap, tracing: enabled}
}

// Named returns a child logger whose entries carry the given component name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Zap: l.Zap.Named(name), tracing: l.tracing}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case Debug:
		return zap.DebugLevel
	case Warning:
		return zap.WarnLevel
	case Error:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
