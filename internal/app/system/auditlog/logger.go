// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"time"

	"github.com/combinefoundation/portal/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// dbWriteTimeout bounds the store write so audit logging can never stall
// the operation it is attached to.
const dbWriteTimeout = 5 * time.Second

// recorder is what the Logger needs from the audit store.
type recorder interface {
	Insert(ctx context.Context, e audit.Entry) error
}

// Logger records audit events. Recording is fire-and-forget: a failure is
// reported on the process logger and swallowed, because audit logging must
// never break the privileged operation it documents.
type Logger struct {
	store  recorder
	zapLog *zap.Logger
}

// New creates an audit Logger. A nil Logger is a usable no-op, which keeps
// handlers testable without wiring a store.
func New(store recorder, zapLog *zap.Logger) *Logger {
	return &Logger{store: store, zapLog: zapLog}
}

// Record writes an entry with request context (IP, user agent) attached.
func (l *Logger) Record(ctx context.Context, r *http.Request, e audit.Entry) {
	if l == nil {
		return
	}
	if r != nil {
		e.IP = clientIP(r)
		e.UserAgent = r.UserAgent()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("action", e.Action),
		zap.String("performed_by", e.PerformedBy.Hex()),
	}
	if e.TargetUser != nil {
		fields = append(fields, zap.String("target_user", e.TargetUser.Hex()))
	}
	if e.Resource != "" {
		fields = append(fields, zap.String("resource", e.Resource))
	}
	l.zapLog.Info("audit event", fields...)

	if l.store == nil {
		return
	}
	dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dbWriteTimeout)
	defer cancel()
	if err := l.store.Insert(dbCtx, e); err != nil {
		l.zapLog.Error("failed to store audit entry", zap.Error(err), zap.String("action", e.Action))
	}
}

// Action records a minimal performer-only entry.
func (l *Logger) Action(ctx context.Context, r *http.Request, action string, performedBy primitive.ObjectID) {
	l.Record(ctx, r, audit.Entry{Action: action, PerformedBy: performedBy})
}

// UserAction records an entry against a target user.
func (l *Logger) UserAction(ctx context.Context, r *http.Request, action string, performedBy, target primitive.ObjectID, details map[string]string) {
	l.Record(ctx, r, audit.Entry{
		Action:      action,
		PerformedBy: performedBy,
		TargetUser:  &target,
		Details:     details,
	})
}

// ResourceAction records an entry against a named resource (course, post,
// lecture, ...) identified by a free-text tag.
func (l *Logger) ResourceAction(ctx context.Context, r *http.Request, action string, performedBy primitive.ObjectID, resource string, details map[string]string) {
	l.Record(ctx, r, audit.Entry{
		Action:      action,
		PerformedBy: performedBy,
		Resource:    resource,
		Details:     details,
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
