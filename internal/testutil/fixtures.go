// internal/testutil/fixtures.go
package testutil

import (
	"testing"
	"time"

	"github.com/dalemusser/corix/internal/app/store/audit"
	groupstore "github.com/dalemusser/corix/internal/app/store/groups"
	invitestore "github.com/dalemusser/corix/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/corix/internal/app/store/memberships"
	messagestore "github.com/dalemusser/corix/internal/app/store/messages"
	userstore "github.com/dalemusser/corix/internal/app/store/users"
	"github.com/dalemusser/corix/internal/app/system/authz"
	"github.com/dalemusser/corix/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures bundles the stores for seeding test state directly, bypassing
// the service-level guards under test.
type Fixtures struct {
	Users       *userstore.Store
	Groups      *groupstore.Store
	Memberships *membershipstore.Store
	Invitations *invitestore.Store
	Messages    *messagestore.Store
	Audit       *audit.Store
}

func NewFixtures(db *mongo.Database) *Fixtures {
	return &Fixtures{
		Users:       userstore.New(db),
		Groups:      groupstore.New(db),
		Memberships: membershipstore.New(db),
		Invitations: invitestore.New(db),
		Messages:    messagestore.New(db),
		Audit:       audit.New(db),
	}
}

// CreateUser inserts a user with a placeholder hash and verified email.
func (f *Fixtures) CreateUser(t *testing.T, email string) models.User {
	t.Helper()
	ctx := TestContext(t)
	u, err := f.Users.Create(ctx, email, "x")
	if err != nil {
		t.Fatalf("fixture CreateUser(%s): %v", email, err)
	}
	if err := f.Users.MarkEmailVerified(ctx, u.ID, time.Now().UTC()); err != nil {
		t.Fatalf("fixture MarkEmailVerified(%s): %v", email, err)
	}
	u2, err := f.Users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("fixture reload user: %v", err)
	}
	return u2
}

// CreateUnverifiedUser inserts a user whose email is not yet verified.
func (f *Fixtures) CreateUnverifiedUser(t *testing.T, email string) models.User {
	t.Helper()
	u, err := f.Users.Create(TestContext(t), email, "x")
	if err != nil {
		t.Fatalf("fixture CreateUnverifiedUser(%s): %v", email, err)
	}
	return u
}

// CreateSuperAdmin inserts a verified user with the super-admin flag.
func (f *Fixtures) CreateSuperAdmin(t *testing.T, email string) models.User {
	t.Helper()
	ctx := TestContext(t)
	u := f.CreateUser(t, email)
	if err := f.Users.SetSuperAdmin(ctx, u.ID, true); err != nil {
		t.Fatalf("fixture SetSuperAdmin: %v", err)
	}
	u.IsSuperAdmin = true
	return u
}

// CreateGroupWithAdmin inserts a group plus an admin membership for the
// given user, mirroring what groupsvc.Create does.
func (f *Fixtures) CreateGroupWithAdmin(t *testing.T, name string, adminID primitive.ObjectID) models.Group {
	t.Helper()
	ctx := TestContext(t)
	g, err := f.Groups.Create(ctx, name, adminID)
	if err != nil {
		t.Fatalf("fixture CreateGroupWithAdmin(%s): %v", name, err)
	}
	if _, err := f.Memberships.Insert(ctx, g.ID, adminID, authz.RoleAdmin, adminID); err != nil {
		t.Fatalf("fixture admin membership: %v", err)
	}
	return g
}

// AddMember inserts a membership with the given role.
func (f *Fixtures) AddMember(t *testing.T, groupID, userID primitive.ObjectID, role authz.Role) models.GroupMembership {
	t.Helper()
	m, err := f.Memberships.Insert(TestContext(t), groupID, userID, role, userID)
	if err != nil {
		t.Fatalf("fixture AddMember: %v", err)
	}
	return m
}

// AddInvitation inserts a pending invitation.
func (f *Fixtures) AddInvitation(t *testing.T, groupID primitive.ObjectID, email string, invitedBy primitive.ObjectID) models.Invitation {
	t.Helper()
	inv, err := f.Invitations.Insert(TestContext(t), groupID, email, invitedBy)
	if err != nil {
		t.Fatalf("fixture AddInvitation(%s): %v", email, err)
	}
	return inv
}
