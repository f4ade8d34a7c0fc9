// internal/app/service/groupsvc/groupsvc.go
package groupsvc

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dalemusser/corix/internal/app/store/audit"
	groupstore "github.com/dalemusser/corix/internal/app/store/groups"
	invitestore "github.com/dalemusser/corix/internal/app/store/invitations"
	membershipstore "github.com/dalemusser/corix/internal/app/store/memberships"
	userstore "github.com/dalemusser/corix/internal/app/store/users"
	"github.com/dalemusser/corix/internal/app/system/apperr"
	"github.com/dalemusser/corix/internal/app/system/auditlog"
	"github.com/dalemusser/corix/internal/app/system/authz"
	"github.com/dalemusser/corix/internal/app/system/inputval"
	"github.com/dalemusser/corix/internal/app/system/txn"
	"github.com/dalemusser/corix/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Service orchestrates the group lifecycle: create, rename, soft delete,
// restore, hard delete, and the read paths over groups and their members.
type Service struct {
	client      *mongo.Client
	groups      *groupstore.Store
	memberships *membershipstore.Store
	invitations *invitestore.Store
	auditStore  *audit.Store
	users       *userstore.Store
	auditLog    *auditlog.Logger
	logger      *zap.Logger
}

func New(
	client *mongo.Client,
	groups *groupstore.Store,
	memberships *membershipstore.Store,
	invitations *invitestore.Store,
	auditStore *audit.Store,
	users *userstore.Store,
	auditLog *auditlog.Logger,
	logger *zap.Logger,
) *Service {
	return &Service{
		client:      client,
		groups:      groups,
		memberships: memberships,
		invitations: invitations,
		auditStore:  auditStore,
		users:       users,
		auditLog:    auditLog,
		logger:      logger,
	}
}

// Create makes a new group with the actor as its first admin. The group and
// the admin membership are written in one transaction; a group must never
// exist without at least one admin.
func (s *Service) Create(ctx context.Context, actorID primitive.ObjectID, name string) (models.Group, error) {
	name, problem := inputval.ValidateGroupName(name)
	if problem != "" {
		return models.Group{}, apperr.InvalidInput(problem)
	}

	var group models.Group
	err := txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		var err error
		group, err = s.groups.Create(ctx, name, actorID)
		if err != nil {
			return err
		}
		_, err = s.memberships.Insert(ctx, group.ID, actorID, authz.RoleAdmin, actorID)
		return err
	})
	if err != nil {
		return models.Group{}, apperr.Internal("create group", err)
	}

	s.logger.Info("group created",
		zap.String("group_id", group.ID.Hex()),
		zap.String("actor_id", actorID.Hex()))
	return group, nil
}

// Rename changes a group's name. Admin only. Renames are deliberately not
// audited; the action is outside the closed audit taxonomy.
func (s *Service) Rename(ctx context.Context, actorID, groupID primitive.ObjectID, name string) error {
	name, problem := inputval.ValidateGroupName(name)
	if problem != "" {
		return apperr.InvalidInput(problem)
	}
	if err := s.requireLiveGroup(ctx, groupID); err != nil {
		return err
	}
	if err := s.requireAction(ctx, actorID, groupID, authz.ActionUpdateSettings); err != nil {
		return err
	}

	if err := s.groups.Rename(ctx, groupID, name); err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			return apperr.NotFound("group not found")
		}
		return apperr.Internal("rename group", err)
	}
	return nil
}

// SoftDelete archives a group: stamps deletedAt/deletedBy, flips every
// membership to "removed", and audits. One transaction; the admin count is
// irrelevant afterwards because nobody is active.
func (s *Service) SoftDelete(ctx context.Context, actorID, groupID primitive.ObjectID) error {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			return apperr.NotFound("group not found")
		}
		return apperr.Internal("load group", err)
	}
	if group.IsDeleted() {
		return apperr.Conflict("group is already deleted")
	}
	if err := s.requireAction(ctx, actorID, groupID, authz.ActionDeleteGroup); err != nil {
		return err
	}

	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		if err := s.groups.SoftDelete(ctx, groupID, actorID, time.Now().UTC()); err != nil {
			return err
		}
		removed, err := s.memberships.RemoveAllInGroup(ctx, groupID, actorID)
		if err != nil {
			return err
		}
		return s.auditLog.Log(ctx, auditlog.Entry{
			GroupID: groupID,
			ActorID: actorID,
			Action:  audit.ActionGroupSoftDeleted,
			Details: auditlog.GroupSoftDeletedDetails{MembersRemoved: removed},
		})
	})
	if err != nil {
		if errors.Is(err, groupstore.ErrAlreadyDeleted) {
			return apperr.Conflict("group is already deleted")
		}
		return apperr.Internal("soft delete group", err)
	}
	return nil
}

// Restore un-deletes a group. Super-admin only. The caller nominates one
// existing member (any role, removed included) to become the new admin;
// everyone else stays "removed". The information loss is intentional.
func (s *Service) Restore(ctx context.Context, actorID, groupID, newAdminUserID primitive.ObjectID) error {
	if err := s.requireSuperAdmin(ctx, actorID); err != nil {
		return err
	}
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			return apperr.NotFound("group not found")
		}
		return apperr.Internal("load group", err)
	}
	if !group.IsDeleted() {
		return apperr.Conflict("group is not deleted")
	}

	nominee, err := s.memberships.Membership(ctx, groupID, newAdminUserID)
	if err != nil {
		return apperr.Internal("load nominee membership", err)
	}
	if nominee == nil {
		return apperr.NotFound("nominated user is not a member of the group")
	}
	nomineeUser, err := s.users.FindByID(ctx, newAdminUserID)
	if err != nil {
		return apperr.Internal("load nominee user", err)
	}
	newAdminDisplay := models.UnknownUserDisplay
	if nomineeUser != nil {
		newAdminDisplay = nomineeUser.DisplayName()
	}

	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		if err := s.groups.Restore(ctx, groupID); err != nil {
			return err
		}
		if err := s.memberships.UpdateRole(ctx, nominee.ID, authz.RoleAdmin, actorID); err != nil {
			return err
		}
		return s.auditLog.Log(ctx, auditlog.Entry{
			GroupID:  groupID,
			ActorID:  actorID,
			TargetID: &newAdminUserID,
			Action:   audit.ActionGroupRestored,
			Details:  auditlog.GroupRestoredDetails{NewAdmin: newAdminDisplay},
		})
	})
	if err != nil {
		if errors.Is(err, groupstore.ErrNotDeleted) {
			return apperr.Conflict("group is not deleted")
		}
		return apperr.Internal("restore group", err)
	}

	s.logger.Info("group restored",
		zap.String("group_id", groupID.Hex()),
		zap.String("new_admin_id", newAdminUserID.Hex()))
	return nil
}

// HardDelete irreversibly removes a group and its owned cascade: all
// memberships, all invitations, all audit entries, then the group document.
// Messages deliberately survive for historical context. Super-admin only.
func (s *Service) HardDelete(ctx context.Context, actorID, groupID primitive.ObjectID) error {
	if err := s.requireSuperAdmin(ctx, actorID); err != nil {
		return err
	}
	if _, err := s.groups.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			return apperr.NotFound("group not found")
		}
		return apperr.Internal("load group", err)
	}

	err := txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		if _, err := s.memberships.DeleteByGroup(ctx, groupID); err != nil {
			return err
		}
		if _, err := s.invitations.DeleteByGroup(ctx, groupID); err != nil {
			return err
		}
		if _, err := s.auditStore.DeleteByGroup(ctx, groupID); err != nil {
			return err
		}
		return s.groups.Delete(ctx, groupID)
	})
	if err != nil {
		return apperr.Internal("hard delete group", err)
	}

	s.logger.Info("group hard deleted",
		zap.String("group_id", groupID.Hex()),
		zap.String("actor_id", actorID.Hex()))
	return nil
}

// FindDeletedByName lets a super-admin locate soft-deleted groups by name
// (case-insensitive) for restore.
func (s *Service) FindDeletedByName(ctx context.Context, actorID primitive.ObjectID, name string) ([]models.Group, error) {
	if err := s.requireSuperAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	out, err := s.groups.FindDeletedByName(ctx, name)
	if err != nil {
		return nil, apperr.Internal("find deleted groups", err)
	}
	return out, nil
}

// GroupWithRole pairs a group with the caller's role in it.
type GroupWithRole struct {
	Group models.Group `json:"group"`
	Role  string       `json:"role"`
}

// MyGroups lists the caller's groups with their role, active memberships
// first. Soft-deleted groups are excluded; their memberships are all
// "removed" anyway, and removed memberships of live groups are listed last
// so the caller can see where they used to belong.
func (s *Service) MyGroups(ctx context.Context, actorID primitive.ObjectID) ([]GroupWithRole, error) {
	mems, err := s.memberships.ListByUser(ctx, actorID)
	if err != nil {
		return nil, apperr.Internal("list memberships", err)
	}
	if len(mems) == 0 {
		return []GroupWithRole{}, nil
	}

	ids := make([]primitive.ObjectID, 0, len(mems))
	for _, m := range mems {
		ids = append(ids, m.GroupID)
	}
	groups, err := s.groups.GetMany(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("load groups", err)
	}
	byID := make(map[primitive.ObjectID]models.Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	var active, removed []GroupWithRole
	for _, m := range mems {
		g, ok := byID[m.GroupID]
		if !ok || g.IsDeleted() {
			continue
		}
		entry := GroupWithRole{Group: g, Role: m.Role}
		if authz.IsActive(authz.Role(m.Role)) {
			active = append(active, entry)
		} else {
			removed = append(removed, entry)
		}
	}
	return append(active, removed...), nil
}

// Get returns a group to a caller holding a view-capable role in it.
func (s *Service) Get(ctx context.Context, actorID, groupID primitive.ObjectID) (models.Group, error) {
	if err := s.requireAction(ctx, actorID, groupID, authz.ActionViewGroup); err != nil {
		return models.Group{}, err
	}
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			return models.Group{}, apperr.NotFound("group not found")
		}
		return models.Group{}, apperr.Internal("load group", err)
	}
	if group.IsDeleted() {
		return models.Group{}, apperr.NotFound("group not found")
	}
	return group, nil
}

// MemberView is one row of a group's member list with the display string
// resolved (email, scrub placeholder, or "Unknown User").
type MemberView struct {
	Membership models.GroupMembership `json:"membership"`
	Display    string                 `json:"display"`
}

// GetMembers lists a group's members ordered by role rank (admins first,
// removed rows last). Every active member sees the removed rows; a caller
// whose own membership is removed gets an empty list, not an error.
func (s *Service) GetMembers(ctx context.Context, actorID, groupID primitive.ObjectID) ([]MemberView, error) {
	res, err := authz.CheckAction(ctx, s.memberships, actorID, groupID, authz.ActionViewGroup)
	if err != nil {
		return nil, apperr.Internal("check permission", err)
	}
	if !res.Allowed {
		if res.Membership != nil && authz.Role(res.Membership.Role) == authz.RoleRemoved {
			return []MemberView{}, nil
		}
		return nil, apperr.PermissionDenied(res.Reason)
	}

	mems, err := s.memberships.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, apperr.Internal("list members", err)
	}

	out := make([]MemberView, 0, len(mems))
	for _, m := range mems {
		display := models.UnknownUserDisplay
		if u, err := s.users.FindByID(ctx, m.UserID); err != nil {
			return nil, apperr.Internal("load member user", err)
		} else if u != nil {
			display = u.DisplayName()
		}
		out = append(out, MemberView{Membership: m, Display: display})
	}

	// Admins first, then editors, viewers, removed; stable within a role.
	sort.SliceStable(out, func(i, j int) bool {
		return authz.Rank(authz.Role(out[i].Membership.Role)) > authz.Rank(authz.Role(out[j].Membership.Role))
	})
	return out, nil
}

// helpers shared by the lifecycle operations

func (s *Service) requireAction(ctx context.Context, actorID, groupID primitive.ObjectID, action authz.Action) error {
	res, err := authz.CheckAction(ctx, s.memberships, actorID, groupID, action)
	if err != nil {
		return apperr.Internal("check permission", err)
	}
	if !res.Allowed {
		return apperr.PermissionDenied(res.Reason)
	}
	return nil
}

func (s *Service) requireLiveGroup(ctx context.Context, groupID primitive.ObjectID) error {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			return apperr.NotFound("group not found")
		}
		return apperr.Internal("load group", err)
	}
	if group.IsDeleted() {
		return apperr.NotFound("group not found")
	}
	return nil
}

func (s *Service) requireSuperAdmin(ctx context.Context, actorID primitive.ObjectID) error {
	u, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return apperr.Internal("load actor", err)
	}
	if u == nil || u.IsDeleted() || !u.IsSuperAdmin {
		return apperr.PermissionDenied("super-admin privilege required")
	}
	return nil
}
