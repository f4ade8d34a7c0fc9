package usersvc

import (
	"regexp"
	"testing"

	"github.com/dalemusser/corix/internal/app/system/apperr"
	"github.com/dalemusser/corix/internal/app/system/authz"
	"github.com/dalemusser/corix/internal/domain/models"
	"github.com/dalemusser/corix/internal/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) (*Service, *testutil.Fixtures) {
	t.Helper()
	client, db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(db)
	svc := New(client, f.Users, f.Groups, f.Memberships, f.Invitations, f.Audit, zap.NewNop())
	return svc, f
}

var placeholderPattern = regexp.MustCompile(`^Deleted User [A-Z0-9]{6,7}$`)

func TestDeleteAccount_BlockedByActiveMembershipThenSucceeds(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	admin := f.CreateUser(t, "admin@example.com")
	u := f.CreateUser(t, "leaver@example.com")
	g := f.CreateGroupWithAdmin(t, "Team X", admin.ID)
	m := f.AddMember(t, g.ID, u.ID, authz.RoleViewer)

	if _, err := svc.DeleteAccount(ctx, u.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("delete with active membership error = %v, want Conflict", err)
	}

	// Leave the group, then deletion goes through.
	if err := f.Memberships.UpdateRole(ctx, m.ID, authz.RoleRemoved, u.ID); err != nil {
		t.Fatalf("remove membership: %v", err)
	}
	placeholder, err := svc.DeleteAccount(ctx, u.ID)
	if err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if !placeholderPattern.MatchString(placeholder) {
		t.Errorf("placeholder %q does not match pattern", placeholder)
	}

	got, err := f.Users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !got.IsDeleted() {
		t.Error("user not marked deleted")
	}
	if got.Email != "" || got.PasswordHash != "" || got.TOTPSecret != "" {
		t.Errorf("PII not scrubbed: %+v", got)
	}
	if got.DeletedUserID != placeholder {
		t.Errorf("stored placeholder %q != returned %q", got.DeletedUserID, placeholder)
	}
	if got.DisplayName() != placeholder {
		t.Errorf("DisplayName() = %q, want placeholder", got.DisplayName())
	}

	// Deleting again is a conflict.
	if _, err := svc.DeleteAccount(ctx, u.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("double delete error = %v, want Conflict", err)
	}
}

func TestDeleteAccount_SoleAdminBlocked(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	u := f.CreateUser(t, "solo@example.com")
	f.CreateGroupWithAdmin(t, "Solo Group", u.ID)

	_, err := svc.DeleteAccount(ctx, u.ID)
	if !apperr.IsKind(err, apperr.KindInvariantViolation) {
		t.Errorf("sole-admin delete error = %v, want InvariantViolation", err)
	}
}

func TestCanDeleteAccount_MatchesDeleteAccount(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	other := f.CreateUser(t, "other@example.com")
	u := f.CreateUser(t, "u@example.com")
	g1 := f.CreateGroupWithAdmin(t, "Blocked Group", u.ID)
	g2 := f.CreateGroupWithAdmin(t, "Shared Group", u.ID)
	f.AddMember(t, g2.ID, other.ID, authz.RoleAdmin)

	check, err := svc.CanDeleteAccount(ctx, u.ID)
	if err != nil {
		t.Fatalf("CanDeleteAccount failed: %v", err)
	}
	if check.CanDelete {
		t.Error("CanDelete = true for a sole admin")
	}
	if len(check.BlockingGroups) != 1 || check.BlockingGroups[0] != "Blocked Group" {
		t.Errorf("BlockingGroups = %v, want [Blocked Group]", check.BlockingGroups)
	}
	_ = g1

	// Hand Blocked Group to a second admin; the check clears.
	f.AddMember(t, g1.ID, other.ID, authz.RoleAdmin)
	check, err = svc.CanDeleteAccount(ctx, u.ID)
	if err != nil {
		t.Fatalf("CanDeleteAccount failed: %v", err)
	}
	if !check.CanDelete || len(check.BlockingGroups) != 0 {
		t.Errorf("check after handoff = %+v, want clear", check)
	}
}

func TestHardDelete_CascadesAndMessagesShowUnknown(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	super := f.CreateSuperAdmin(t, "root@example.com")
	admin := f.CreateUser(t, "admin@example.com")
	target := f.CreateUser(t, "target@example.com")
	g := f.CreateGroupWithAdmin(t, "Team X", admin.ID)
	f.AddMember(t, g.ID, target.ID, authz.RoleEditor)
	f.AddInvitation(t, g.ID, "sent@example.com", target.ID)
	for i := 0; i < 3; i++ {
		if _, err := f.Messages.Insert(ctx, g.ID, target.ID, "hello"); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	if err := svc.HardDelete(ctx, super.ID, target.ID); err != nil {
		t.Fatalf("HardDelete failed: %v", err)
	}

	if u, _ := f.Users.FindByID(ctx, target.ID); u != nil {
		t.Error("user document still exists")
	}
	if m, _ := f.Memberships.Membership(ctx, g.ID, target.ID); m != nil {
		t.Error("membership not cascaded")
	}
	if invs, _ := f.Invitations.ListPendingByEmail(ctx, "sent@example.com"); len(invs) != 0 {
		t.Errorf("invitations not cascaded: %d left", len(invs))
	}

	// Messages survive; the author resolves to "Unknown User" since hard
	// delete leaves no placeholder behind.
	msgs, err := f.Messages.ListRecentByGroup(ctx, g.ID, 10)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	if u, _ := f.Users.FindByID(ctx, msgs[0].AuthorID); u != nil {
		t.Error("author document should be gone")
	} else if models.UnknownUserDisplay != "Unknown User" {
		t.Error("unexpected unknown-user display constant")
	}
}

func TestHardDelete_Guards(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	super := f.CreateSuperAdmin(t, "root@example.com")
	normal := f.CreateUser(t, "normal@example.com")

	if err := svc.HardDelete(ctx, normal.ID, super.ID); !apperr.IsKind(err, apperr.KindPermissionDenied) {
		t.Errorf("non-super hard delete error = %v, want PermissionDenied", err)
	}
	if err := svc.HardDelete(ctx, super.ID, super.ID); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Errorf("self hard delete error = %v, want InvalidInput", err)
	}
}

func TestUpdateEmail(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	u := f.CreateUser(t, "old@example.com")
	f.CreateUser(t, "taken@example.com")

	if err := svc.UpdateEmail(ctx, u.ID, "not-an-email"); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Errorf("bad email error = %v, want InvalidInput", err)
	}
	if err := svc.UpdateEmail(ctx, u.ID, "Taken@Example.com"); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("duplicate email error = %v, want Conflict", err)
	}
	if err := svc.UpdateEmail(ctx, u.ID, "New@Example.com"); err != nil {
		t.Fatalf("UpdateEmail failed: %v", err)
	}

	got, err := f.Users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if got.Email != "new@example.com" {
		t.Errorf("email = %q, want new@example.com", got.Email)
	}
	if got.EmailVerifiedAt != nil {
		t.Error("verification timestamp should be cleared on email change")
	}
}

func TestChangePassword(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	u := f.CreateUser(t, "u@example.com")
	hash, err := bcrypt.GenerateFromPassword([]byte("current-pass-123!"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("seed hash: %v", err)
	}
	if err := f.Users.SetPasswordHash(ctx, u.ID, string(hash)); err != nil {
		t.Fatalf("seed password: %v", err)
	}

	if err := svc.ChangePassword(ctx, u.ID, "wrong", "NewPassword123!"); !apperr.IsKind(err, apperr.KindPermissionDenied) {
		t.Errorf("wrong current password error = %v, want PermissionDenied", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "current-pass-123!", "short1!"); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Errorf("weak password error = %v, want InvalidInput", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "current-pass-123!", "NewPassword123!"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	got, _ := f.Users.GetByID(ctx, u.ID)
	if bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("NewPassword123!")) != nil {
		t.Error("new password does not verify")
	}
}
