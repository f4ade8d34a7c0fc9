// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"github.com/dalemusser/corix/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Audit actions. The enum is closed: readers and the details codec both
// switch on these exact strings, and group rename is deliberately absent
// from the taxonomy (low-risk, high-frequency).
const (
	ActionMemberInvited    = "member_invited"
	ActionMemberJoined     = "member_joined"
	ActionMemberLeft       = "member_left"
	ActionMemberRemoved    = "member_removed"
	ActionRoleChanged      = "role_changed"
	ActionInviteRevoked    = "invite_revoked"
	ActionGroupSoftDeleted = "group_soft_deleted"
	ActionGroupRestored    = "group_restored"
)

// ActionLabels maps each action to its display string.
var ActionLabels = map[string]string{
	ActionMemberInvited:    "Member Invited",
	ActionMemberJoined:     "Member Joined",
	ActionMemberLeft:       "Member Left",
	ActionMemberRemoved:    "Member Removed",
	ActionRoleChanged:      "Role Changed",
	ActionInviteRevoked:    "Invitation Revoked",
	ActionGroupSoftDeleted: "Group Soft Deleted",
	ActionGroupRestored:    "Group Restored",
}

// Store manages the append-only audit_logs collection.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_logs")}
}

// Insert appends one entry. Entries are never updated afterwards.
func (s *Store) Insert(ctx context.Context, entry models.AuditLog) (models.AuditLog, error) {
	entry.ID = primitive.NewObjectID()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, entry); err != nil {
		return models.AuditLog{}, err
	}
	return entry, nil
}

// ListByGroup returns the newest entries first, capped at limit.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, limit int64) ([]models.AuditLog, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"group_id": groupID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit))
	if err != nil {
		return nil, err
	}
	var out []models.AuditLog
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByGroup removes a group's entries (group hard-delete cascade).
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByActor removes every entry a user performed (user hard-delete
// cascade).
func (s *Store) DeleteByActor(ctx context.Context, actorID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"actor_id": actorID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
