// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/corix/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound       = errors.New("group not found")
	ErrAlreadyDeleted = errors.New("group is already soft-deleted")
	ErrNotDeleted     = errors.New("group is not soft-deleted")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) Create(ctx context.Context, name string, createdBy primitive.ObjectID) (models.Group, error) {
	now := time.Now().UTC()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, ErrNotFound
		}
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) Rename(ctx context.Context, id primitive.ObjectID, name string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete stamps deleted_at/deleted_by. The filter requires the group to
// be live, so a concurrent duplicate soft-delete loses and reports
// ErrAlreadyDeleted even inside a transaction retry.
func (s *Store) SoftDelete(ctx context.Context, id, deletedBy primitive.ObjectID, at time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "deleted_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{
			"deleted_at": at.UTC(),
			"deleted_by": deletedBy,
			"updated_at": time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return gerr
		}
		return ErrAlreadyDeleted
	}
	return nil
}

// Restore clears the soft-delete stamp. Mirrors SoftDelete: the filter
// requires the group to actually be soft-deleted.
func (s *Store) Restore(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "deleted_at": bson.M{"$exists": true}},
		bson.M{
			"$unset": bson.M{"deleted_at": "", "deleted_by": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return gerr
		}
		return ErrNotDeleted
	}
	return nil
}

// Delete removes the group document (hard delete). Cascades are the
// service's responsibility.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindDeletedByName retrieves soft-deleted groups whose folded name matches.
// Superadmins use this to locate groups for restore.
func (s *Store) FindDeletedByName(ctx context.Context, name string) ([]models.Group, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"name_ci": text.Fold(name), "deleted_at": bson.M{"$exists": true}},
		options.Find().SetSort(bson.D{{Key: "deleted_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Group
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMany fetches groups by ID, preserving no particular order.
func (s *Store) GetMany(ctx context.Context, ids []primitive.ObjectID) ([]models.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var out []models.Group
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
