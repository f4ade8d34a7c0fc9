package membersvc

import (
	"testing"

	"github.com/dalemusser/corix/internal/app/store/audit"
	"github.com/dalemusser/corix/internal/app/system/apperr"
	"github.com/dalemusser/corix/internal/app/system/auditlog"
	"github.com/dalemusser/corix/internal/app/system/authz"
	"github.com/dalemusser/corix/internal/testutil"
	"go.uber.org/zap"
)

func newService(t *testing.T) (*Service, *testutil.Fixtures) {
	t.Helper()
	client, db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(db)
	svc := New(client, f.Memberships, auditlog.New(f.Audit, zap.NewNop()), zap.NewNop())
	return svc, f
}

func TestChangeRole_AdminPromotesAndDemotes(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	u1 := f.CreateUser(t, "u1@example.com")
	u2 := f.CreateUser(t, "u2@example.com")
	g := f.CreateGroupWithAdmin(t, "Team X", u1.ID)
	f.AddMember(t, g.ID, u2.ID, authz.RoleEditor)

	// Promote U2 to admin, then demote U1 to viewer: two admins existed
	// before the demotion, so both steps succeed.
	if err := svc.ChangeRole(ctx, u1.ID, g.ID, u2.ID, "admin"); err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	if err := svc.ChangeRole(ctx, u2.ID, g.ID, u1.ID, "viewer"); err != nil {
		t.Fatalf("demote failed: %v", err)
	}

	m1, _ := f.Memberships.Membership(ctx, g.ID, u1.ID)
	if m1.Role != string(authz.RoleViewer) {
		t.Errorf("u1 role = %q, want viewer", m1.Role)
	}

	entries, err := f.Audit.ListByGroup(ctx, g.ID, 10)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Action != audit.ActionRoleChanged {
			t.Errorf("action = %q, want role_changed", e.Action)
		}
	}
}

// Setting the role a member already holds is not a no-op: the row is
// re-stamped with the actor and a role_changed entry is written, so the
// audit trail shows who touched the membership and when.
func TestChangeRole_SameRoleStillPatchesAndAudits(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	admin := f.CreateUser(t, "admin@example.com")
	editor := f.CreateUser(t, "editor@example.com")
	g := f.CreateGroupWithAdmin(t, "Team X", admin.ID)
	f.AddMember(t, g.ID, editor.ID, authz.RoleEditor)

	if err := svc.ChangeRole(ctx, admin.ID, g.ID, editor.ID, "editor"); err != nil {
		t.Fatalf("same-role change failed: %v", err)
	}

	m, err := f.Memberships.Membership(ctx, g.ID, editor.ID)
	if err != nil {
		t.Fatalf("reload membership: %v", err)
	}
	if m.Role != string(authz.RoleEditor) {
		t.Errorf("role = %q, want editor", m.Role)
	}
	if m.UpdatedBy != admin.ID {
		t.Errorf("updated_by = %s, want the acting admin", m.UpdatedBy.Hex())
	}

	entries, err := f.Audit.ListByGroup(ctx, g.ID, 10)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].Action != audit.ActionRoleChanged {
		t.Errorf("action = %q, want role_changed", entries[0].Action)
	}
}

func TestChangeRole_LastAdminDemotionFails(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	u1 := f.CreateUser(t, "u1@example.com")
	u2 := f.CreateUser(t, "u2@example.com")
	g := f.CreateGroupWithAdmin(t, "Team X", u1.ID)
	f.AddMember(t, g.ID, u2.ID, authz.RoleEditor)

	// Reverse order of the happy path: demoting the only admin first fails.
	// U2 is not an admin so the call also fails on permission; exercise the
	// invariant via an admin acting on themself through this path.
	err := svc.ChangeRole(ctx, u1.ID, g.ID, u1.ID, "viewer")
	if !apperr.IsKind(err, apperr.KindInvariantViolation) {
		t.Errorf("last-admin demotion error = %v, want InvariantViolation", err)
	}

	m1, _ := f.Memberships.Membership(ctx, g.ID, u1.ID)
	if m1.Role != string(authz.RoleAdmin) {
		t.Errorf("u1 role changed despite failure: %q", m1.Role)
	}
}

func TestChangeRole_RemoveUsesMemberRemovedAction(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	u1 := f.CreateUser(t, "u1@example.com")
	u2 := f.CreateUser(t, "u2@example.com")
	g := f.CreateGroupWithAdmin(t, "Team X", u1.ID)
	f.AddMember(t, g.ID, u2.ID, authz.RoleViewer)

	if err := svc.ChangeRole(ctx, u1.ID, g.ID, u2.ID, "removed"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	entries, err := f.Audit.ListByGroup(ctx, g.ID, 10)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != audit.ActionMemberRemoved {
		t.Errorf("expected member_removed entry, got %+v", entries)
	}
}

func TestChangeRole_Validation(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	u1 := f.CreateUser(t, "u1@example.com")
	u2 := f.CreateUser(t, "u2@example.com")
	outsider := f.CreateUser(t, "outsider@example.com")
	g := f.CreateGroupWithAdmin(t, "Team X", u1.ID)
	f.AddMember(t, g.ID, u2.ID, authz.RoleViewer)

	if err := svc.ChangeRole(ctx, u1.ID, g.ID, u2.ID, "owner"); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Errorf("unknown role error = %v, want InvalidInput", err)
	}
	if err := svc.ChangeRole(ctx, u2.ID, g.ID, u1.ID, "viewer"); !apperr.IsKind(err, apperr.KindPermissionDenied) {
		t.Errorf("non-admin actor error = %v, want PermissionDenied", err)
	}
	if err := svc.ChangeRole(ctx, u1.ID, g.ID, outsider.ID, "viewer"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("missing target error = %v, want NotFound", err)
	}
}

func TestLeaveGroup(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	u1 := f.CreateUser(t, "u1@example.com")
	u2 := f.CreateUser(t, "u2@example.com")
	g := f.CreateGroupWithAdmin(t, "Team X", u1.ID)
	f.AddMember(t, g.ID, u2.ID, authz.RoleEditor)

	// Sole admin cannot leave while others are active.
	if err := svc.LeaveGroup(ctx, u1.ID, g.ID); !apperr.IsKind(err, apperr.KindInvariantViolation) {
		t.Errorf("sole-admin leave error = %v, want InvariantViolation", err)
	}

	// The editor can leave.
	if err := svc.LeaveGroup(ctx, u2.ID, g.ID); err != nil {
		t.Fatalf("editor leave failed: %v", err)
	}
	m2, _ := f.Memberships.Membership(ctx, g.ID, u2.ID)
	if m2.Role != string(authz.RoleRemoved) {
		t.Errorf("u2 role = %q, want removed", m2.Role)
	}

	// Leaving twice is rejected: the membership is no longer active.
	if err := svc.LeaveGroup(ctx, u2.ID, g.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("double leave error = %v, want NotFound", err)
	}

	entries, err := f.Audit.ListByGroup(ctx, g.ID, 10)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != audit.ActionMemberLeft {
		t.Errorf("expected one member_left entry, got %+v", entries)
	}
}

func TestAdminCountInvariantAfterMutations(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	u1 := f.CreateUser(t, "u1@example.com")
	u2 := f.CreateUser(t, "u2@example.com")
	g := f.CreateGroupWithAdmin(t, "Team X", u1.ID)
	f.AddMember(t, g.ID, u2.ID, authz.RoleAdmin)

	// With two admins, one may step down.
	if err := svc.LeaveGroup(ctx, u2.ID, g.ID); err != nil {
		t.Fatalf("leave with two admins failed: %v", err)
	}
	admins, _ := f.Memberships.CountAdmins(ctx, g.ID)
	if admins != 1 {
		t.Fatalf("admin count = %d, want 1", admins)
	}

	// Now the invariant holds against every remaining downgrade path.
	if err := svc.LeaveGroup(ctx, u1.ID, g.ID); !apperr.IsKind(err, apperr.KindInvariantViolation) {
		t.Errorf("leave error = %v, want InvariantViolation", err)
	}
	if err := svc.ChangeRole(ctx, u1.ID, g.ID, u1.ID, "removed"); !apperr.IsKind(err, apperr.KindInvariantViolation) {
		t.Errorf("self-removal error = %v, want InvariantViolation", err)
	}
	admins, _ = f.Memberships.CountAdmins(ctx, g.ID)
	if admins != 1 {
		t.Errorf("admin count after failed mutations = %d, want 1", admins)
	}
}

func TestGetMyMembership(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	u1 := f.CreateUser(t, "u1@example.com")
	outsider := f.CreateUser(t, "out@example.com")
	g := f.CreateGroupWithAdmin(t, "Team X", u1.ID)

	m, err := svc.GetMyMembership(ctx, u1.ID, g.ID)
	if err != nil {
		t.Fatalf("GetMyMembership failed: %v", err)
	}
	if m.Role != string(authz.RoleAdmin) {
		t.Errorf("role = %q, want admin", m.Role)
	}

	if _, err := svc.GetMyMembership(ctx, outsider.ID, g.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("outsider error = %v, want NotFound", err)
	}
}
