// internal/domain/models/auditlog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditLog is one append-only record of a privileged mutation in a group.
// Details holds a JSON-encoded blob whose shape is fixed per action (see
// system/auditlog). Entries are never mutated; they are deleted only by the
// hard-delete cascades of their group or their actor.
type AuditLog struct {
	ID       primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	GroupID  primitive.ObjectID  `bson:"group_id" json:"group_id"`
	ActorID  primitive.ObjectID  `bson:"actor_id" json:"actor_id"`
	TargetID *primitive.ObjectID `bson:"target_id,omitempty" json:"target_id,omitempty"`
	Action   string              `bson:"action" json:"action"`
	Details  string              `bson:"details,omitempty" json:"details,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
