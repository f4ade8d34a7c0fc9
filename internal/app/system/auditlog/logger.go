// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/dalemusser/corix/internal/app/store/audit"
	"github.com/dalemusser/corix/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Logger appends audit entries for privileged mutations. Every entry goes to
// the audit_logs collection and is mirrored to structured logs so operators
// can follow privileged activity without querying Mongo.
//
// Log is expected to run inside the same transaction as the mutation it
// records; the caller passes the transaction's context.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
}

// New creates an audit Logger.
func New(store *audit.Store, zapLog *zap.Logger) *Logger {
	return &Logger{store: store, zapLog: zapLog}
}

// Entry describes one privileged mutation to record.
type Entry struct {
	GroupID  primitive.ObjectID
	ActorID  primitive.ObjectID
	TargetID *primitive.ObjectID
	Action   string
	Details  Details
}

// Log appends the entry. The details payload is serialized here so services
// never handle the JSON encoding themselves.
func (l *Logger) Log(ctx context.Context, e Entry) error {
	blob, err := encodeDetails(e.Details)
	if err != nil {
		return err
	}
	_, err = l.store.Insert(ctx, models.AuditLog{
		GroupID:  e.GroupID,
		ActorID:  e.ActorID,
		TargetID: e.TargetID,
		Action:   e.Action,
		Details:  blob,
	})
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("action", e.Action),
		zap.String("group_id", e.GroupID.Hex()),
		zap.String("actor_id", e.ActorID.Hex()),
	}
	if e.TargetID != nil {
		fields = append(fields, zap.String("target_id", e.TargetID.Hex()))
	}
	if blob != "" {
		fields = append(fields, zap.String("details", blob))
	}
	l.zapLog.Info("audit event", fields...)
	return nil
}
