// internal/app/store/invitations/invitestore.go
package invitestore

import (
	"context"
	"errors"
	"time"

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
	ErrDuplicatePending = errors.New("invitation already pending for this email")
	ErrNotFound         = errors.New("invitation not found")
	ErrNotPending       = errors.New("invitation is not pending")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invitations")}
}

// Insert creates a pending invitation. The partial unique index on
// (group_id, email) where status=pending turns a concurrent duplicate into
// ErrDuplicatePending; terminal rows for the same pair never collide.
func (s *Store) Insert(ctx context.Context, groupID primitive.ObjectID, email string, invitedBy primitive.ObjectID) (models.Invitation, error) {
	inv := models.Invitation{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		Email:     email,
		InvitedBy: invitedBy,
		Status:    models.InviteStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Invitation{}, ErrDuplicatePending
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Invitation, error) {
	var inv models.Invitation
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&inv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Invitation{}, ErrNotFound
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

// FindPendingByGroupEmail returns the pending invitation for (group, email),
// or (nil, nil) when none exists. Email must already be normalized.
func (s *Store) FindPendingByGroupEmail(ctx context.Context, groupID primitive.ObjectID, email string) (*models.Invitation, error) {
	var inv models.Invitation
	err := s.c.FindOne(ctx, bson.M{
		"group_id": groupID,
		"email":    email,
		"status":   models.InviteStatusPending,
	}).Decode(&inv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListPendingByEmail returns all pending invitations for a normalized email,
// oldest first. Auto-accept walks this list.
func (s *Store) ListPendingByEmail(ctx context.Context, email string) ([]models.Invitation, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"email": email, "status": models.InviteStatusPending},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Invitation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPendingByGroup returns a group's pending invitations, newest first.
func (s *Store) ListPendingByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Invitation, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"group_id": groupID, "status": models.InviteStatusPending},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Invitation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkAccepted transitions pending → accepted. The filter pins the current
// status, so a row that was revoked or accepted in the meantime reports
// ErrNotPending instead of being silently rewritten.
func (s *Store) MarkAccepted(ctx context.Context, id, acceptedBy primitive.ObjectID, at time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.InviteStatusPending},
		bson.M{"$set": bson.M{
			"status":      models.InviteStatusAccepted,
			"accepted_at": at.UTC(),
			"accepted_by": acceptedBy,
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return gerr
		}
		return ErrNotPending
	}
	return nil
}

// MarkRevoked transitions pending → revoked with the same status pin.
func (s *Store) MarkRevoked(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.InviteStatusPending},
		bson.M{"$set": bson.M{"status": models.InviteStatusRevoked}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return gerr
		}
		return ErrNotPending
	}
	return nil
}

// DeleteByGroup removes all invitations for a group (hard-delete cascade).
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByInviter removes all invitations authored by a user (user
// hard-delete cascade).
func (s *Store) DeleteByInviter(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"invited_by": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
