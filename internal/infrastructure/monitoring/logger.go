package monitoring

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/logger"
)

// zapLogger implements the logger.Logger interface on top of zap. It is the
// production logger; the plain JSON logger in pkg/logger stays available for
// tests and tooling that want an io.Writer sink.
type zapLogger struct {
	zl    *zap.Logger
	level zap.AtomicLevel
}

var _ logger.Logger = (*zapLogger)(nil)

// NewZapLogger creates a production zap logger honoring the configured level
// and output path.
//
// Parameters:
//   - cfg: Log configuration.
//
// Returns:
//   - logger.Logger: The configured logger.
//   - error: Output path failure.
func NewZapLogger(cfg *config.LogConfig) (logger.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zap.NewAtomicLevelAt(toZapLevel(constants.LogLevel(cfg.Level)))

	sink := zapcore.AddSync(os.Stdout)
	if cfg.OutputPath != "" && cfg.OutputPath != "stdout" {
		f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		sink = zapcore.AddSync(f)
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, sink, level)
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))

	return &zapLogger{zl: zl, level: level}, nil
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...logger.Field) {
	l.zl.Debug(msg, l.convert(ctx, fields)...)
}

func (l *zapLogger) Info(ctx context.Context, msg string, fields ...logger.Field) {
	l.zl.Info(msg, l.convert(ctx, fields)...)
}

func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...logger.Field) {
	l.zl.Warn(msg, l.convert(ctx, fields)...)
}

func (l *zapLogger) Error(ctx context.Context, msg string, err error, fields ...logger.Field) {
	zf := l.convert(ctx, fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.zl.Error(msg, zf...)
}

func (l *zapLogger) Fatal(ctx context.Context, msg string, err error, fields ...logger.Field) {
	zf := l.convert(ctx, fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.zl.Fatal(msg, zf...)
}

func (l *zapLogger) WithFields(fields ...logger.Field) logger.Logger {
	zf := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		zf = append(zf, zap.Any(f.Key, f.Value))
	}
	return &zapLogger{zl: l.zl.With(zf...), level: l.level}
}

func (l *zapLogger) WithComponent(component string) logger.Logger {
	return &zapLogger{zl: l.zl.With(zap.String("component", component)), level: l.level}
}

func (l *zapLogger) SetLevel(level constants.LogLevel) {
	l.level.SetLevel(toZapLevel(level))
}

func (l *zapLogger) GetLevel() constants.LogLevel {
	switch l.level.Level() {
	case zapcore.DebugLevel:
		return constants.LogLevelDebug
	case zapcore.InfoLevel:
		return constants.LogLevelInfo
	case zapcore.WarnLevel:
		return constants.LogLevelWarn
	case zapcore.ErrorLevel:
		return constants.LogLevelError
	case zapcore.FatalLevel:
		return constants.LogLevelFatal
	default:
		return constants.LogLevelInfo
	}
}

// convert maps logger fields and ambient context values to zap fields.
func (l *zapLogger) convert(ctx context.Context, fields []logger.Field) []zap.Field {
	zf := make([]zap.Field, 0, len(fields)+3)

	if ctx != nil {
		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			zf = append(zf,
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("span_id", span.SpanContext().SpanID().String()),
			)
		}
		if requestID, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok {
			zf = append(zf, zap.String("request_id", requestID))
		}
	}

	for _, f := range fields {
		zf = append(zf, zap.Any(f.Key, f.Value))
	}
	return zf
}

func toZapLevel(level constants.LogLevel) zapcore.Level {
	switch level {
	case constants.LogLevelDebug:
		return zapcore.DebugLevel
	case constants.LogLevelInfo:
		return zapcore.InfoLevel
	case constants.LogLevelWarn:
		return zapcore.WarnLevel
	case constants.LogLevelError:
		return zapcore.ErrorLevel
	case constants.LogLevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
