// internal/app/service/membersvc/membersvc.go
package membersvc

import (
	"context"

	"github.com/dalemusser/corix/internal/app/store/audit"
	membershipstore "github.com/dalemusser/corix/internal/app/store/memberships"
	"github.com/dalemusser/corix/internal/app/system/apperr"
	"github.com/dalemusser/corix/internal/app/system/auditlog"
	"github.com/dalemusser/corix/internal/app/system/authz"
	"github.com/dalemusser/corix/internal/app/system/txn"
	"github.com/dalemusser/corix/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Service handles role changes inside a group: admin-driven changeRole and
// the self-service leaveGroup. Both guard the sole-admin invariant by
// re-reading the admin count inside the transaction.
type Service struct {
	client      *mongo.Client
	memberships *membershipstore.Store
	auditLog    *auditlog.Logger
	logger      *zap.Logger
}

func New(client *mongo.Client, memberships *membershipstore.Store, auditLog *auditlog.Logger, logger *zap.Logger) *Service {
	return &Service{client: client, memberships: memberships, auditLog: auditLog, logger: logger}
}

// ChangeRole sets another member's role. Admin only; admins route their own
// demotion through LeaveGroup. Demoting the last admin fails with an
// invariant violation; the admin count is read inside the transaction so
// concurrent demotions cannot both pass the guard.
func (s *Service) ChangeRole(ctx context.Context, actorID, groupID, targetUserID primitive.ObjectID, newRole string) error {
	role, ok := authz.ParseRole(newRole)
	if !ok {
		return apperr.InvalidInput("unknown role " + newRole)
	}

	res, err := authz.CheckAction(ctx, s.memberships, actorID, groupID, authz.ActionManageMembers)
	if err != nil {
		return apperr.Internal("check permission", err)
	}
	if !res.Allowed {
		return apperr.PermissionDenied(res.Reason)
	}

	err = txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		target, err := s.memberships.Membership(ctx, groupID, targetUserID)
		if err != nil {
			return err
		}
		if target == nil {
			return apperr.NotFound("membership not found")
		}
		prev := authz.Role(target.Role)

		if prev == authz.RoleAdmin && role != authz.RoleAdmin {
			admins, err := s.memberships.CountAdmins(ctx, groupID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return apperr.InvariantViolation("cannot remove the last admin of the group")
			}
		}

		if err := s.memberships.UpdateRole(ctx, target.ID, role, actorID); err != nil {
			return err
		}

		action := audit.ActionRoleChanged
		if role == authz.RoleRemoved {
			action = audit.ActionMemberRemoved
		}
		return s.auditLog.Log(ctx, auditlog.Entry{
			GroupID:  groupID,
			ActorID:  actorID,
			TargetID: &targetUserID,
			Action:   action,
			Details:  auditlog.RoleChangedDetails{PreviousRole: string(prev), NewRole: string(role)},
		})
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			return err
		}
		return apperr.Internal("change role", err)
	}
	return nil
}

// LeaveGroup sets the caller's own role to "removed". The sole admin of a
// group with other active members cannot leave; they must hand off admin
// first (or soft-delete the group).
func (s *Service) LeaveGroup(ctx context.Context, actorID, groupID primitive.ObjectID) error {
	err := txn.WithTransaction(ctx, s.client, func(ctx context.Context) error {
		m, err := s.memberships.Membership(ctx, groupID, actorID)
		if err != nil {
			return err
		}
		if m == nil || !authz.IsActive(authz.Role(m.Role)) {
			return apperr.NotFound("you are not an active member of this group")
		}
		prev := authz.Role(m.Role)

		if prev == authz.RoleAdmin {
			admins, err := s.memberships.CountAdmins(ctx, groupID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return apperr.InvariantViolation("cannot leave as the last admin of the group")
			}
		}

		if err := s.memberships.UpdateRole(ctx, m.ID, authz.RoleRemoved, actorID); err != nil {
			return err
		}
		return s.auditLog.Log(ctx, auditlog.Entry{
			GroupID:  groupID,
			ActorID:  actorID,
			TargetID: &actorID,
			Action:   audit.ActionMemberLeft,
			Details:  auditlog.MemberLeftDetails{PreviousRole: string(prev)},
		})
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			return err
		}
		return apperr.Internal("leave group", err)
	}

	s.logger.Info("member left group",
		zap.String("group_id", groupID.Hex()),
		zap.String("user_id", actorID.Hex()))
	return nil
}

// GetMyMembership returns the caller's membership row in the group, or
// NotFound if they have never been a member.
func (s *Service) GetMyMembership(ctx context.Context, actorID, groupID primitive.ObjectID) (models.GroupMembership, error) {
	m, err := s.memberships.Membership(ctx, groupID, actorID)
	if err != nil {
		return models.GroupMembership{}, apperr.Internal("load membership", err)
	}
	if m == nil {
		return models.GroupMembership{}, apperr.NotFound("membership not found")
	}
	return *m, nil
}
