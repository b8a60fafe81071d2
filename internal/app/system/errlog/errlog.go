// internal/app/system/errlog/errlog.go

// Package errlog is the dual-sink error logger: every entry goes to a
// size/count-bounded rolling file (through zap) and to the error_logs
// collection. It is constructed once at boot and passed to the handlers
// that need it; a sink failure is reported on the process logger and never
// propagated to callers.
package errlog

import (
	"context"
	"time"

	"github.com/combinefoundation/portal/internal/app/store/errorlog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// dbWriteTimeout bounds the Mongo write so a slow database cannot stall
// the request path that triggered the log.
const dbWriteTimeout = 5 * time.Second

// FileConfig bounds the rolling file sink.
type FileConfig struct {
	Path       string // e.g. "logs/error.log"
	MaxSizeMB  int    // rotate after this size
	MaxBackups int    // keep at most this many rotated files
	MaxAgeDays int    // drop rotated files older than this
}

// Logger writes entries to the rolling file and the database.
type Logger struct {
	file  *zap.Logger
	store *errorlog.Store
	proc  *zap.Logger // process logger, for reporting sink failures
}

// New builds a Logger. store may be nil in tests; the file sink is always
// constructed.
func New(cfg FileConfig, store *errorlog.Store, proc *zap.Logger) *Logger {
	if cfg.Path == "" {
		cfg.Path = "logs/error.log"
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	})
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), w, zapcore.DebugLevel)

	return &Logger{
		file:  zap.New(core),
		store: store,
		proc:  proc,
	}
}

// Log records an entry in both sinks. Safe to call on a nil Logger.
func (l *Logger) Log(ctx context.Context, e errorlog.Entry) {
	if l == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	fields := []zap.Field{
		zap.String("source", e.Source),
		zap.String("endpoint", e.Endpoint),
		zap.Int("status_code", e.StatusCode),
	}
	if e.UserID != nil {
		fields = append(fields, zap.String("user_id", e.UserID.Hex()))
	}
	if e.Stack != "" {
		fields = append(fields, zap.String("stack", e.Stack))
	}
	for k, v := range e.Metadata {
		fields = append(fields, zap.String("meta_"+k, v))
	}

	switch e.Level {
	case errorlog.LevelDebug:
		l.file.Debug(e.Message, fields...)
	case errorlog.LevelInfo:
		l.file.Info(e.Message, fields...)
	case errorlog.LevelWarn:
		l.file.Warn(e.Message, fields...)
	default:
		l.file.Error(e.Message, fields...)
	}

	if l.store != nil {
		// Detach from the request context so cancellation of the request
		// does not lose the entry.
		dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dbWriteTimeout)
		defer cancel()
		if err := l.store.Insert(dbCtx, e); err != nil && l.proc != nil {
			l.proc.Error("error-log db sink failed", zap.Error(err), zap.String("message", e.Message))
		}
	}
}

// Error records an error-level entry with the given source tag.
func (l *Logger) Error(ctx context.Context, source, msg string, err error, userID *primitive.ObjectID) {
	meta := map[string]string{}
	if err != nil {
		meta["error"] = err.Error()
	}
	l.Log(ctx, errorlog.Entry{
		Level:    errorlog.LevelError,
		Message:  msg,
		Source:   source,
		UserID:   userID,
		Metadata: meta,
	})
}

// Sync flushes the file sink. Called during shutdown.
func (l *Logger) Sync() {
	if l != nil {
		_ = l.file.Sync()
	}
}
