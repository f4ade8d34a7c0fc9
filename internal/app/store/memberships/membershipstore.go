// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/corix/internal/app/system/authz"
	"github.com/dalemusser/corix/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateMembership = errors.New("user is already a member of this group")
	ErrNotFound            = errors.New("membership not found")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_memberships")}
}

// Membership returns the single row for (group, user), or (nil, nil) when
// none exists. Implements authz.MembershipSource.
func (s *Store) Membership(ctx context.Context, groupID, userID primitive.ObjectID) (*models.GroupMembership, error) {
	var m models.GroupMembership
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

var _ authz.MembershipSource = (*Store)(nil)

// Insert creates the one membership row for (group, user). The unique index
// on (group_id, user_id) makes a duplicate insert fail rather than fork the
// pair into two rows.
func (s *Store) Insert(ctx context.Context, groupID, userID primitive.ObjectID, role authz.Role, by primitive.ObjectID) (models.GroupMembership, error) {
	now := time.Now().UTC()
	m := models.GroupMembership{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		Role:      string(role),
		JoinedAt:  now,
		UpdatedAt: now,
		UpdatedBy: by,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GroupMembership{}, ErrDuplicateMembership
		}
		return models.GroupMembership{}, err
	}
	return m, nil
}

// UpdateRole patches role, updated_at, and updated_by on an existing row.
func (s *Store) UpdateRole(ctx context.Context, id primitive.ObjectID, role authz.Role, by primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"role":       string(role),
		"updated_at": time.Now().UTC(),
		"updated_by": by,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountAdmins is the sole-admin guard's input: the number of rows with role
// "admin" in the group, read at call time.
func (s *Store) CountAdmins(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID, "role": string(authz.RoleAdmin)})
}

// CountActive counts non-removed rows in a group.
func (s *Store) CountActive(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"group_id": groupID,
		"role":     bson.M{"$ne": string(authz.RoleRemoved)},
	})
}

// ListByGroup returns every membership row in a group, active and removed.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return nil, err
	}
	var out []models.GroupMembership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser returns every membership row for a user, active and removed.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.GroupMembership, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	var out []models.GroupMembership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListActiveByUser returns the user's non-removed rows. The deleteAccount
// precondition ("must have left every group") reads this.
func (s *Store) ListActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]models.GroupMembership, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"user_id": userID,
		"role":    bson.M{"$ne": string(authz.RoleRemoved)},
	})
	if err != nil {
		return nil, err
	}
	var out []models.GroupMembership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUserRole returns the user's rows holding a specific role, sorted by
// join time so blocking-group reports are stable.
func (s *Store) ListByUserRole(ctx context.Context, userID primitive.ObjectID, role authz.Role) ([]models.GroupMembership, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"user_id": userID, "role": string(role)},
		options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.GroupMembership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveAllInGroup flips every row in the group to "removed" in one bulk
// update. Group soft-delete runs this inside the same transaction as the
// group patch and the audit insert.
func (s *Store) RemoveAllInGroup(ctx context.Context, groupID, by primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"group_id": groupID},
		bson.M{"$set": bson.M{
			"role":       string(authz.RoleRemoved),
			"updated_at": time.Now().UTC(),
			"updated_by": by,
		}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteByGroup removes all membership rows for a group (hard-delete cascade).
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUser removes all membership rows for a user (hard-delete cascade).
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
