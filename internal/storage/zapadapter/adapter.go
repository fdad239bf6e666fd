// Package zapadapter provides a pgx logger that writes to a go.uber.org/zap.Logger
// and tags each record with the connection id found in context.
package zapadapter

import (
	"context"

	"github.com/jackc/pgx/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type key string

const connIDKey key = "conn_id"

type Logger struct {
	logger *zap.Logger
}

// NewContextWithConnID returns ctx carrying websocket connection id
func NewContextWithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connIDKey, id)
}

// ConnIDFromContext returns connection id stored by NewContextWithConnID
func ConnIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(connIDKey).(string)
	return id, ok
}

func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (pl *Logger) Log(ctx context.Context, level pgx.LogLevel, msg string, data map[string]interface{}) {
	fields := make([]zapcore.Field, 0, len(data)+1)
	if id, ok := ConnIDFromContext(ctx); ok {
		fields = append(fields, zap.String("conn_id", id))
	}
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}

	switch level {
	case pgx.LogLevelTrace, pgx.LogLevelDebug:
		pl.logger.Debug(msg, fields...)
	case pgx.LogLevelInfo:
		pl.logger.Info(msg, fields...)
	case pgx.LogLevelWarn:
		pl.logger.Warn(msg, fields...)
	case pgx.LogLevelError:
		pl.logger.Error(msg, fields...)
	default:
		pl.logger.Error(msg, append(fields, zap.Stringer("PGX_LOG_LEVEL", level))...)
	}
}
