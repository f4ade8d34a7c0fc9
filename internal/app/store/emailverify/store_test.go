// internal/app/store/emailverify/store_test.go
package emailverify

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/corix/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTokenLifecycle(t *testing.T) {
	_, db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	s := New(db, time.Hour)
	userID := primitive.NewObjectID()

	token, err := s.Create(ctx, userID, "u@example.com")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(token) != TokenLength*2 {
		t.Errorf("token length = %d, want %d hex chars", len(token), TokenLength*2)
	}

	// A second request replaces the first; the old token stops working.
	token2, err := s.Create(ctx, userID, "u@example.com")
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if _, err := s.VerifyToken(ctx, token); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale token error = %v, want ErrNotFound", err)
	}

	v, err := s.VerifyToken(ctx, token2)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if v.UserID != userID || v.Email != "u@example.com" {
		t.Errorf("verification = %+v", v)
	}

	// Tokens are single use.
	if _, err := s.VerifyToken(ctx, token2); !errors.Is(err, ErrNotFound) {
		t.Errorf("reused token error = %v, want ErrNotFound", err)
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	_, db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	s := New(db, -time.Minute)
	s.expiry = -time.Minute // force an already-expired record

	token, err := s.Create(ctx, primitive.NewObjectID(), "u@example.com")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.VerifyToken(ctx, token); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired token error = %v, want ErrNotFound", err)
	}
}

func TestDeleteByUser(t *testing.T) {
	_, db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	s := New(db, time.Hour)
	userID := primitive.NewObjectID()

	token, err := s.Create(ctx, userID, "u@example.com")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.DeleteByUser(ctx, userID); err != nil {
		t.Fatalf("DeleteByUser failed: %v", err)
	}
	if _, err := s.VerifyToken(ctx, token); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted token error = %v, want ErrNotFound", err)
	}
}
