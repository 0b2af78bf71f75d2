package logger

import (
	"context"
	"errors"
	"syscall"

	"go.uber.org/fx"
)

// FXModule provides a *Logger built from Config and flushes it on stop.
var FXModule = fx.Module("logger",
	fx.Provide(NewLoggerClient),
	fx.Invoke(RegisterLoggerLifecycle),
)

// RegisterLoggerLifecycle flushes buffered entries when the app stops.
func RegisterLoggerLifecycle(lc fx.Lifecycle, log *Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return syncIgnoringTTY(log)
		},
	})
}

// syncIgnoringTTY drops the EINVAL/ENOTTY that fsync reports for terminals
// and pipes behind stderr.
func syncIgnoringTTY(log *Logger) error {
	err := log.Zap.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
