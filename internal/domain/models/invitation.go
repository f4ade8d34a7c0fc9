// internal/domain/models/invitation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invitation statuses. "pending" is the only mutable state; "accepted" and
// "revoked" are terminal. At most one pending invitation may exist per
// (group_id, email), enforced by a partial unique index.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusRevoked  = "revoked"
)

// Invitation invites an email address into a group. Email is stored
// lowercased and trimmed so the pending-uniqueness and auto-accept lookups
// are case-insensitive.
type Invitation struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	Email     string             `bson:"email" json:"email"`
	InvitedBy primitive.ObjectID `bson:"invited_by" json:"invited_by"`
	Status    string             `bson:"status" json:"status"`

	AcceptedAt *time.Time          `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	AcceptedBy *primitive.ObjectID `bson:"accepted_by,omitempty" json:"accepted_by,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
