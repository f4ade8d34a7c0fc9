package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/corix/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// mapSource serves memberships from a map keyed by group+user hex.
type mapSource struct {
	rows map[string]*models.GroupMembership
	err  error
}

func (s mapSource) Membership(_ context.Context, groupID, userID primitive.ObjectID) (*models.GroupMembership, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows[groupID.Hex()+userID.Hex()], nil
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{"admin", RoleAdmin, true},
		{"Editor", RoleEditor, true},
		{"  viewer  ", RoleViewer, true},
		{"REMOVED", RoleRemoved, true},
		{"owner", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseRole(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRankOrdering(t *testing.T) {
	if !(Rank(RoleAdmin) > Rank(RoleEditor) && Rank(RoleEditor) > Rank(RoleViewer) && Rank(RoleViewer) > Rank(RoleRemoved)) {
		t.Error("display ordering must be admin > editor > viewer > removed")
	}
	if Rank(Role("owner")) != -1 {
		t.Error("unknown roles must sort last")
	}
}

func TestIsActive(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleEditor, RoleViewer} {
		if !IsActive(r) {
			t.Errorf("IsActive(%q) = false, want true", r)
		}
	}
	if IsActive(RoleRemoved) {
		t.Error("IsActive(removed) = true, want false")
	}
	if IsActive(Role("owner")) {
		t.Error("IsActive(unknown) = true, want false")
	}
}

func TestHasPermission_Table(t *testing.T) {
	tests := []struct {
		action Action
		role   Role
		want   bool
	}{
		{ActionViewGroup, RoleViewer, true},
		{ActionViewGroup, RoleRemoved, false},
		{ActionViewMessages, RoleEditor, true},
		{ActionPostMessages, RoleEditor, true},
		{ActionPostMessages, RoleViewer, false},
		{ActionManageMembers, RoleAdmin, true},
		{ActionManageMembers, RoleEditor, false},
		{ActionManageInvitations, RoleAdmin, true},
		{ActionManageInvitations, RoleViewer, false},
		{ActionViewAudit, RoleAdmin, true},
		{ActionViewAudit, RoleEditor, false},
		{ActionDeleteGroup, RoleAdmin, true},
		{ActionDeleteGroup, RoleViewer, false},
		{ActionUpdateSettings, RoleAdmin, true},
		{ActionUpdateSettings, RoleEditor, false},
		{Action("view:nothing"), RoleAdmin, false}, // unknown action fails closed
	}
	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+string(tt.role), func(t *testing.T) {
			if got := HasPermission(tt.role, tt.action); got != tt.want {
				t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.action, got, tt.want)
			}
		})
	}
}

func TestCheck_AllowsListedRole(t *testing.T) {
	groupID := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	src := mapSource{rows: map[string]*models.GroupMembership{
		groupID.Hex() + userID.Hex(): {GroupID: groupID, UserID: userID, Role: "editor"},
	}}

	res, err := Check(context.Background(), src, userID, groupID, RoleAdmin, RoleEditor)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected allowed, got reason %q", res.Reason)
	}
	if res.Membership == nil || res.Membership.Role != "editor" {
		t.Error("Check should return the membership row on success")
	}
}

func TestCheck_FailsClosedWithoutMembership(t *testing.T) {
	src := mapSource{rows: map[string]*models.GroupMembership{}}
	res, err := Check(context.Background(), src, primitive.NewObjectID(), primitive.NewObjectID(), RoleAdmin)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if res.Allowed {
		t.Error("missing membership must deny")
	}
	if res.Membership != nil {
		t.Error("missing membership must not return a row")
	}
}

func TestCheck_DeniesRoleOutsideList(t *testing.T) {
	groupID := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	src := mapSource{rows: map[string]*models.GroupMembership{
		groupID.Hex() + userID.Hex(): {GroupID: groupID, UserID: userID, Role: "removed"},
	}}

	res, err := Check(context.Background(), src, userID, groupID, RoleAdmin, RoleEditor, RoleViewer)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if res.Allowed {
		t.Error("removed role must be denied for member-only actions")
	}
	if res.Membership == nil {
		t.Error("denial with an existing row should still return the row")
	}
}

func TestCheck_PropagatesLookupError(t *testing.T) {
	src := mapSource{err: errors.New("connection reset")}
	_, err := Check(context.Background(), src, primitive.NewObjectID(), primitive.NewObjectID(), RoleAdmin)
	if err == nil {
		t.Fatal("lookup errors must propagate, not silently deny")
	}
}

func TestCheckAction_UsesTable(t *testing.T) {
	groupID := primitive.NewObjectID()
	userID := primitive.NewObjectID()
	src := mapSource{rows: map[string]*models.GroupMembership{
		groupID.Hex() + userID.Hex(): {GroupID: groupID, UserID: userID, Role: "viewer"},
	}}

	res, err := CheckAction(context.Background(), src, userID, groupID, ActionViewMessages)
	if err != nil {
		t.Fatalf("CheckAction failed: %v", err)
	}
	if !res.Allowed {
		t.Error("viewer should be able to view messages")
	}

	res, err = CheckAction(context.Background(), src, userID, groupID, ActionPostMessages)
	if err != nil {
		t.Fatalf("CheckAction failed: %v", err)
	}
	if res.Allowed {
		t.Error("viewer should not be able to post messages")
	}
}
