package logger

import (
	"context"

	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger to provide logging functionality
type Logger struct {
	*zap.SugaredLogger
}

// L is the fallback logger for scripts and package init code.
// Everything wired through fx receives its logger by injection.
var L *Logger

func init() {
	L, _ = NewLogger(config.GetDefaultConfig())
}

// NewLogger creates and returns a new Logger instance
func NewLogger(cfg *config.Configuration) (*Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Logging.Level))

	if cfg.Deployment.Mode == types.ModeLocal {
		zapCfg.Development = true
	}

	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		SugaredLogger: zapLogger.Sugar(),
	}, nil
}

// NewNopLogger returns a logger that discards everything, used by tests
func NewNopLogger() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// WithContext returns a logger annotated with the request scoped identifiers found in ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := make([]interface{}, 0, 4)
	if requestID := types.GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if userID := types.GetUserID(ctx); userID != "" {
		fields = append(fields, "user_id", userID)
	}
	if len(fields) == 0 {
		return l
	}
	return &Logger{SugaredLogger: l.SugaredLogger.With(fields...)}
}

func parseLevel(level types.LogLevel) zapcore.Level {
	switch level {
	case types.LogLevelDebug:
		return zapcore.DebugLevel
	case types.LogLevelWarn:
		return zapcore.WarnLevel
	case types.LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
