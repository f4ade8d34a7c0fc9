// internal/app/store/emailverify/store.go
package emailverify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// TokenLength is the length of the link token in bytes (32 bytes = 64 hex chars).
	TokenLength = 32
	// DefaultExpiry is how long a verification link is valid.
	DefaultExpiry = 24 * time.Hour
)

// ErrNotFound is returned when a verification record is missing or expired.
var ErrNotFound = errors.New("verification not found or expired")

// Verification is a pending email verification. One record exists per
// user at a time; requesting a new link replaces the old one.
type Verification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Email     string             `bson:"email"`
	Token     string             `bson:"token"`
	ExpiresAt time.Time          `bson:"expires_at"` // TTL index field
	CreatedAt time.Time          `bson:"created_at"`
}

// Store manages email verification records.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
}

// New creates a Store. If expiry is 0 or negative, DefaultExpiry is used.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{
		c:      db.Collection("email_verifications"),
		expiry: expiry,
	}
}

// Expiry returns the configured link lifetime.
func (s *Store) Expiry() time.Duration { return s.expiry }

// EnsureIndexes creates the TTL and lookup indexes. Mongo's TTL monitor
// removes expired records; VerifyToken still checks expires_at so a
// link cannot be used in the window before the monitor runs.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_emailverify_expires_ttl").SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetName("idx_emailverify_token"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_emailverify_user"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, models)
	return err
}

// Create issues a fresh verification token for the user, replacing any
// existing record. The returned token goes into the link sent by email;
// only the token is ever exposed outside this store.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, email string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.c.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{
			"user_id":    userID,
			"email":      email,
			"token":      token,
			"expires_at": now.Add(s.expiry),
			"created_at": now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return "", fmt.Errorf("store verification: %w", err)
	}
	return token, nil
}

// VerifyToken consumes a link token. The record is deleted on success so
// a link works exactly once.
func (s *Store) VerifyToken(ctx context.Context, token string) (*Verification, error) {
	var v Verification
	err := s.c.FindOneAndDelete(ctx, bson.M{"token": token}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("look up verification token: %w", err)
	}
	if time.Now().After(v.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &v, nil
}

// DeleteByUser removes any pending verification for the user. Called when
// the account is deleted or the email changes.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

func generateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
