package messagesvc

import (
	"strings"
	"testing"

	"github.com/dalemusser/corix/internal/app/system/apperr"
	"github.com/dalemusser/corix/internal/app/system/authz"
	"github.com/dalemusser/corix/internal/testutil"
	"go.uber.org/zap"
)

func newService(t *testing.T) (*Service, *testutil.Fixtures) {
	t.Helper()
	_, db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(db)
	svc := New(f.Messages, f.Memberships, f.Users, zap.NewNop())
	return svc, f
}

func TestCreate_RoleGating(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	admin := f.CreateUser(t, "admin@example.com")
	editor := f.CreateUser(t, "editor@example.com")
	viewer := f.CreateUser(t, "viewer@example.com")
	outsider := f.CreateUser(t, "outsider@example.com")
	g := f.CreateGroupWithAdmin(t, "Team X", admin.ID)
	f.AddMember(t, g.ID, editor.ID, authz.RoleEditor)
	f.AddMember(t, g.ID, viewer.ID, authz.RoleViewer)

	if _, err := svc.Create(ctx, admin.ID, g.ID, "from admin"); err != nil {
		t.Errorf("admin post failed: %v", err)
	}
	if _, err := svc.Create(ctx, editor.ID, g.ID, "from editor"); err != nil {
		t.Errorf("editor post failed: %v", err)
	}
	if _, err := svc.Create(ctx, viewer.ID, g.ID, "from viewer"); !apperr.IsKind(err, apperr.KindPermissionDenied) {
		t.Errorf("viewer post error = %v, want PermissionDenied", err)
	}
	if _, err := svc.Create(ctx, outsider.ID, g.ID, "from outsider"); !apperr.IsKind(err, apperr.KindPermissionDenied) {
		t.Errorf("outsider post error = %v, want PermissionDenied", err)
	}
}

func TestCreate_ContentRules(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	admin := f.CreateUser(t, "admin@example.com")
	g := f.CreateGroupWithAdmin(t, "Team X", admin.ID)

	if _, err := svc.Create(ctx, admin.ID, g.ID, "   "); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Errorf("blank message error = %v, want InvalidInput", err)
	}
	if _, err := svc.Create(ctx, admin.ID, g.ID, strings.Repeat("x", 501)); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Errorf("oversize message error = %v, want InvalidInput", err)
	}

	// Markup is stripped before the rules apply; a script-only message is
	// effectively empty.
	if _, err := svc.Create(ctx, admin.ID, g.ID, "<script>alert(1)</script>"); !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Errorf("script-only message error = %v, want InvalidInput", err)
	}

	msg, err := svc.Create(ctx, admin.ID, g.ID, "  <b>hello</b> world  ")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if msg.Content != "hello world" {
		t.Errorf("content = %q, want sanitized trimmed text", msg.Content)
	}
}

func TestListRecent_AuthorDisplayFallbacks(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	admin := f.CreateUser(t, "admin@example.com")
	g := f.CreateGroupWithAdmin(t, "Team X", admin.ID)

	if _, err := svc.Create(ctx, admin.ID, g.ID, "still here"); err != nil {
		t.Fatalf("post failed: %v", err)
	}

	views, err := svc.ListRecent(ctx, admin.ID, g.ID, 0)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(views) != 1 || views[0].Author != "admin@example.com" {
		t.Errorf("views = %+v, want author email", views)
	}
}

func TestListRecent_ViewerAllowedRemovedGetsEmpty(t *testing.T) {
	svc, f := newService(t)
	ctx := testutil.TestContext(t)
	admin := f.CreateUser(t, "admin@example.com")
	viewer := f.CreateUser(t, "viewer@example.com")
	gone := f.CreateUser(t, "gone@example.com")
	outsider := f.CreateUser(t, "outsider@example.com")
	g := f.CreateGroupWithAdmin(t, "Team X", admin.ID)
	f.AddMember(t, g.ID, viewer.ID, authz.RoleViewer)
	f.AddMember(t, g.ID, gone.ID, authz.RoleRemoved)

	if _, err := svc.Create(ctx, admin.ID, g.ID, "hello"); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	views, err := svc.ListRecent(ctx, viewer.ID, g.ID, 10)
	if err != nil {
		t.Errorf("viewer read failed: %v", err)
	}
	if len(views) != 1 {
		t.Errorf("viewer sees %d messages, want 1", len(views))
	}

	// A removed member gets an empty list, not an error; the messages that
	// do exist stay hidden.
	asRemoved, err := svc.ListRecent(ctx, gone.ID, g.ID, 10)
	if err != nil {
		t.Fatalf("removed read failed: %v", err)
	}
	if len(asRemoved) != 0 {
		t.Errorf("removed caller sees %d messages, want 0", len(asRemoved))
	}

	// A non-member is still denied outright.
	if _, err := svc.ListRecent(ctx, outsider.ID, g.ID, 10); !apperr.IsKind(err, apperr.KindPermissionDenied) {
		t.Errorf("outsider read error = %v, want PermissionDenied", err)
	}
}
