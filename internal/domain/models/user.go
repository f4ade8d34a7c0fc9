// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account created by the identity layer on first sign-in.
//
// NOTE:
//   - Group membership is not embedded on User.
//     Use the group_memberships collection to discover a user's groups.
//   - Soft delete scrubs Email and the TOTP fields and stamps DeletedAt plus
//     a DeletedUserID placeholder ("Deleted User ABC123") used for display.
//     Hard delete removes the document entirely.
type User struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email   string             `bson:"email,omitempty" json:"email,omitempty"`
	EmailCI string             `bson:"email_ci,omitempty" json:"-"` // lowercase, diacritics-stripped

	EmailVerifiedAt *time.Time `bson:"email_verified_at,omitempty" json:"email_verified_at,omitempty"`

	// Local credential glue. Hashing policy itself belongs to the identity
	// layer; the hash is stored here so the glue has somewhere to live.
	PasswordHash string `bson:"password_hash,omitempty" json:"-"`

	// 2FA. The TOTP primitives are delegated to the authenticator app side;
	// we only persist the secret and the enabled flag.
	TOTPSecret  string `bson:"totp_secret,omitempty" json:"-"`
	TOTPEnabled bool   `bson:"totp_enabled,omitempty" json:"totp_enabled,omitempty"`

	IsSuperAdmin bool `bson:"is_super_admin,omitempty" json:"is_super_admin,omitempty"`

	DeletedAt     *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	DeletedUserID string     `bson:"deleted_user_id,omitempty" json:"deleted_user_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsDeleted reports whether the account has been soft deleted.
func (u User) IsDeleted() bool { return u.DeletedAt != nil }

// DisplayName resolves the string shown for this user in member lists,
// messages, and audit entries: email, then the scrub placeholder, then
// "Unknown User".
func (u User) DisplayName() string {
	if u.DeletedAt != nil {
		if u.DeletedUserID != "" {
			return u.DeletedUserID
		}
		return "Deleted User"
	}
	if u.Email != "" {
		return u.Email
	}
	return UnknownUserDisplay
}

// UnknownUserDisplay is shown when the user document no longer exists
// (hard delete leaves no placeholder behind).
const UnknownUserDisplay = "Unknown User"
