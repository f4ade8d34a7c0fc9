// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/corix/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateEmail = errors.New("an account with this email already exists")
	ErrNotFound       = errors.New("user not found")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Create inserts a new account. Email is stored as given plus a folded
// email_ci copy used for the unique index and case-insensitive lookups.
func (s *Store) Create(ctx context.Context, email, passwordHash string) (models.User, error) {
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		EmailCI:      text.Fold(email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// FindByID returns (nil, nil) when the user document does not exist, which
// read paths use to fall back to the "Unknown User" display.
func (s *Store) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail looks up an account by case-insensitive email. Returns
// (nil, nil) when no account exists.
func (s *Store) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"email_ci": text.Fold(email)}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateEmail changes the address and clears the verification timestamp so
// the new address must be re-verified.
func (s *Store) UpdateEmail(ctx context.Context, id primitive.ObjectID, email string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"email":      email,
			"email_ci":   text.Fold(email),
			"updated_at": time.Now().UTC(),
		},
		"$unset": bson.M{"email_verified_at": ""},
	})
	if wafflemongo.IsDup(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *Store) SetPasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
	return err
}

// MarkEmailVerified stamps the verification time.
func (s *Store) MarkEmailVerified(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"email_verified_at": at.UTC(),
		"updated_at":        time.Now().UTC(),
	}})
	return err
}

func (s *Store) SetSuperAdmin(ctx context.Context, id primitive.ObjectID, isSuperAdmin bool) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"is_super_admin": isSuperAdmin,
		"updated_at":     time.Now().UTC(),
	}})
	return err
}

// SoftDelete scrubs PII: the email (and its folded copy), credential hash,
// and TOTP fields are removed; deleted_at plus the display placeholder are
// stamped. The document itself stays so message/audit reads can resolve the
// placeholder.
func (s *Store) SoftDelete(ctx context.Context, id primitive.ObjectID, placeholder string, at time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "deleted_at": bson.M{"$exists": false}},
		bson.M{
			"$set": bson.M{
				"deleted_at":      at.UTC(),
				"deleted_user_id": placeholder,
				"updated_at":      time.Now().UTC(),
			},
			"$unset": bson.M{
				"email":         "",
				"email_ci":      "",
				"password_hash": "",
				"totp_secret":   "",
				"totp_enabled":  "",
			},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user document entirely (hard delete).
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
