// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a tenant/workspace containing members and messages.
//
// NOTE:
//   - Member lists are not embedded on Group.
//     All membership is stored in the group_memberships collection.
//   - Soft delete stamps DeletedAt/DeletedBy; the document stays in place so
//     a superadmin can restore it. Hard delete removes it with its cascade.
type Group struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"-"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`

	DeletedAt *time.Time          `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	DeletedBy *primitive.ObjectID `bson:"deleted_by,omitempty" json:"deleted_by,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsDeleted reports whether the group has been soft deleted.
func (g Group) IsDeleted() bool { return g.DeletedAt != nil }
